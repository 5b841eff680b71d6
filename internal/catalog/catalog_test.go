package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/internal/catalog"
	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/suggest"
)

var _ suggest.Catalog = (*catalog.File)(nil)

const sample = `
regions:
  - key: cdmx
    name: Ciudad de México
    lat: 19.4326
    lng: -99.1332
places:
  - external_id: a
    name: Alpha
    region: cdmx
    lat: 19.43
    lng: -99.13
    rating: 4.5
  - external_id: b
    name: Bravo
    region: jal
    lat: 20.66
    lng: -103.35
`

func TestParse(t *testing.T) {
	f, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)
	ctx := context.Background()

	regions, err := f.Regions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, domain.Region{Key: "cdmx", Name: "Ciudad de México", Lat: 19.4326, Lng: -99.1332}, regions[0])

	all, err := f.ListPlaces(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 4.5, all[0].Rating)

	scoped, err := f.ListPlaces(ctx, []string{"jal"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "b", scoped[0].ExternalID)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":     "places: [",
		"missing id":   "places:\n  - name: x\n",
		"duplicate id": "places:\n  - external_id: x\n  - external_id: x\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := catalog.Load(path)
	require.NoError(t, err)

	places, err := f.ListPlaces(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, places)
	assert.Equal(t, "a", places[0].ExternalID)
	assert.Equal(t, "Alpha", places[0].Name)

	_, err = catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	f := catalog.Default()
	ctx := context.Background()

	regions, err := f.Regions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, regions)

	places, err := f.ListPlaces(ctx, []string{"cdmx"})
	require.NoError(t, err)
	assert.NotEmpty(t, places)
	for _, p := range places {
		assert.Equal(t, "cdmx", p.Region)
	}
}

func TestListPlaces_ReturnsCopy(t *testing.T) {
	f, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	first, _ := f.ListPlaces(context.Background(), nil)
	first[0].Name = "mutated"
	second, _ := f.ListPlaces(context.Background(), nil)

	assert.Equal(t, "Alpha", second[0].Name)
}
