package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"potager/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- GardenRepository Tests ---

func newTestProfile() *types.GardenProfile {
	return &types.GardenProfile{
		Location:  types.GeoPoint{Lat: 45.76, Lon: 4.84, Name: "Lyon"},
		AltitudeM: 173,
		Timezone:  "Europe/Paris",
		Soil:      types.SoilLoamy,
		Mulched:   true,
		Plants: types.TrackedPlantList{
			{Name: "tomate", Modes: []types.CultivationMode{types.ModeOpenGround, types.ModeContainer}},
			{Name: "salade", Modes: []types.CultivationMode{types.ModeOpenGround}},
		},
		Lawn:  types.LawnConfig{TargetHeightCM: 5},
		Email: "gardener@example.com",
	}
}

func TestGardenRepository_Save_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewGardenRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Save(context.Background(), newTestProfile())
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestGardenRepository_Save_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewGardenRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Save(context.Background(), newTestProfile())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestGardenRepository_Get_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewGardenRepository(db)

	want := newTestProfile()
	now := time.Date(2026, 6, 15, 6, 0, 0, 0, time.UTC)
	row := &mockRow{
		scanFn: func(dest ...any) error {
			town := want.Location.Name
			*dest[0].(**string) = &town
			*dest[1].(*float64) = want.Location.Lat
			*dest[2].(*float64) = want.Location.Lon
			*dest[3].(*float64) = want.AltitudeM
			*dest[4].(*string) = want.Timezone
			*dest[5].(*types.SoilType) = want.Soil
			*dest[6].(*bool) = want.Mulched

			plantBytes, _ := json.Marshal(want.Plants)
			dest[7].(*types.TrackedPlantList).Scan(plantBytes)
			lawnBytes, _ := json.Marshal(want.Lawn)
			dest[8].(*types.LawnConfig).Scan(lawnBytes)

			email := want.Email
			*dest[9].(**string) = &email
			*dest[10].(*time.Time) = now
			return nil
		},
	}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lyon", got.Location.Name)
	assert.Equal(t, 45.76, got.Location.Lat)
	assert.Equal(t, types.SoilLoamy, got.Soil)
	assert.True(t, got.Mulched)
	require.Len(t, got.Plants, 2)
	assert.Equal(t, "tomate", got.Plants[0].Name)
	assert.Equal(t, 5.0, got.Lawn.TargetHeightCM)
	assert.Equal(t, "gardener@example.com", got.Email)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestGardenRepository_Get_NullableColumnsAbsent(t *testing.T) {
	db := new(mockDBTX)
	repo := NewGardenRepository(db)

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(**string) = nil
			*dest[1].(*float64) = 45.76
			*dest[2].(*float64) = 4.84
			*dest[3].(*float64) = 173
			*dest[4].(*string) = "Europe/Paris"
			*dest[5].(*types.SoilType) = types.SoilSandy
			*dest[6].(*bool) = false
			dest[7].(*types.TrackedPlantList).Scan([]byte(`[]`))
			dest[8].(*types.LawnConfig).Scan([]byte(`{"target_height_cm":5}`))
			*dest[9].(**string) = nil
			*dest[10].(*time.Time) = time.Now()
			return nil
		},
	}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Location.Name)
	assert.Empty(t, got.Email)
}

func TestGardenRepository_Get_NotConfigured(t *testing.T) {
	db := new(mockDBTX)
	repo := NewGardenRepository(db)

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.Get(context.Background())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundGarden, appErr.Code)
}

func TestGardenRepository_Get_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewGardenRepository(db)

	row := &mockRow{scanErr: errors.New("broken pipe")}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.Get(context.Background())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
