package sqlite

import (
	"fmt"

	"github.com/julianstephens/weekcal/internal/models"
)

func (s *Store) GetSettings() (models.CalendarSettings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.CalendarSettings{}, err
	}
	defer rows.Close()

	data := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.CalendarSettings{}, err
		}
		data[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.CalendarSettings{}, err
	}

	if len(data) == 0 {
		return models.CalendarSettings{}, fmt.Errorf("settings not found")
	}

	return models.MapToSettings(data)
}

func (s *Store) SaveSettings(settings models.CalendarSettings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range models.SettingsToMap(settings) {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *Store) UpdateSettings(patch models.SettingsPatch) (models.CalendarSettings, error) {
	current, err := s.GetSettings()
	if err != nil {
		return models.CalendarSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return models.CalendarSettings{}, err
	}
	if err := s.SaveSettings(updated); err != nil {
		return models.CalendarSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return updated, nil
}
