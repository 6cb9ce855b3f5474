package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"10_guest_expiry.sql":  {Data: []byte("ALTER TABLE guests ADD COLUMN note TEXT;")},
		"2_camera_streams.sql": {Data: []byte("ALTER TABLE cameras ADD COLUMN fps INT;")},
		"1_initial_schema.sql": {Data: []byte("CREATE TABLE organizations (id BIGSERIAL);")},
		"README.md":            {Data: []byte("not a migration")},
		"archive/0_old.sql":    {Data: []byte("SELECT 1;")},
	}

	got, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []int{1, 2, 10}, []int{got[0].Version, got[1].Version, got[2].Version})
	assert.Equal(t, "2_camera_streams.sql", got[1].Name)
	assert.Len(t, got[0].Checksum, 16)
	assert.NotEqual(t, got[0].Checksum, got[1].Checksum)
}

func TestLoadMigrations_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "missing description",
			fsys:    fstest.MapFS{"3.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "<version>_<description>.sql",
		},
		{
			name:    "non numeric version",
			fsys:    fstest.MapFS{"v3_cameras.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid version",
		},
		{
			name:    "zero version",
			fsys:    fstest.MapFS{"0_cameras.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid version",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"4_cameras.sql": {Data: []byte("SELECT 1;")},
				"4_guests.sql":  {Data: []byte("SELECT 2;")},
			},
			wantErr: "already used by 4_cameras.sql",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMigrations(tt.fsys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestChecksum_TracksContent(t *testing.T) {
	a := checksum([]byte("CREATE TABLE events (id BIGSERIAL);"))
	assert.Equal(t, a, checksum([]byte("CREATE TABLE events (id BIGSERIAL);")))
	assert.NotEqual(t, a, checksum([]byte("CREATE TABLE events (id SERIAL);")))
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := EmbeddedMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].Version)
	assert.Contains(t, got[0].sql, "CREATE TABLE events")
}

func TestMigrationState_Pending(t *testing.T) {
	assert.True(t, MigrationState{}.Pending())
}
