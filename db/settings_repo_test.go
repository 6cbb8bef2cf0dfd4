package db

import (
	"testing"
)

func TestSettingsRepo_DefaultOverrides(t *testing.T) {
	t.Run("should return an empty map on a fresh database", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		got, err := repo.GetDefaultOverrides()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got))
		}
	})

	t.Run("should round-trip default overrides", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := map[string]string{
			"DATA_LOADER.NUM_WORKERS": "8",
			"TRAIN.AUTO_RESUME":       "True",
		}

		if err := repo.SetDefaultOverrides(want); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.GetDefaultOverrides()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != len(want) {
			t.Fatalf("\nwanted:\n%d\ngot:\n%d", len(want), len(got))
		}
		for key, value := range want {
			if got[key] != value {
				t.Fatalf("\nwanted:\n%q=%q\ngot:\n%q", key, value, got[key])
			}
		}
	})
}

func TestSettingsRepo_UpdateWorkspaceID(t *testing.T) {
	t.Run("should update the workspace id", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		if err := repo.UpdateWorkspaceID("ws-01"); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		var got string
		if err := repo.dbConn.Get(&got, `SELECT workspace_id FROM app LIMIT 1`); err != nil {
			t.Fatalf("reading workspace id: %v", err)
		}
		if got != "ws-01" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "ws-01", got)
		}
	})
}
