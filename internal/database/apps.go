package database

import "database/sql"

// UpsertApp records an app in the catalog, refreshing its metadata on
// repeat sightings.
func (db *DB) UpsertApp(appID int64, name string, seller, bundleID, country *string) error {
	_, err := db.conn.Exec(
		`INSERT INTO apps (app_id, name, seller, bundle_id, country) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET name = excluded.name, seller = excluded.seller,
			bundle_id = excluded.bundle_id, country = excluded.country`,
		appID, name, seller, bundleID, country,
	)
	return err
}

// GetApp returns a catalog entry, or nil if the app was never seen.
func (db *DB) GetApp(appID int64) (*App, error) {
	row := db.conn.QueryRow(
		`SELECT app_id, name, seller, bundle_id, country, first_seen FROM apps WHERE app_id = ?`,
		appID,
	)
	var a App
	err := row.Scan(&a.AppID, &a.Name, &a.Seller, &a.BundleID, &a.Country, &a.FirstSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetApps returns all catalog entries ordered by name.
func (db *DB) GetApps() ([]App, error) {
	rows, err := db.conn.Query(
		`SELECT app_id, name, seller, bundle_id, country, first_seen FROM apps ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []App
	for rows.Next() {
		var a App
		if err := rows.Scan(&a.AppID, &a.Name, &a.Seller, &a.BundleID, &a.Country, &a.FirstSeen); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
