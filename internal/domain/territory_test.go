package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCircleTerritory() Territory {
	return Territory{
		UserID:   42,
		Name:     "Home",
		Geometry: Circle(Geo{Lat: 39.10, Lon: -94.58}, 25),
		Policy: AlertPolicy{
			AlertHail:    true,
			EmailEnabled: true,
		},
		Active: true,
	}
}

func violatedFields(t *testing.T, err error) []string {
	t.Helper()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	fields := make([]string, len(vErr.Violations))
	for i, v := range vErr.Violations {
		fields[i] = v.Field
	}
	return fields
}

func TestValidate_ValidCircle(t *testing.T) {
	assert.NoError(t, validCircleTerritory().Validate())
}

func TestValidate_ValidPolygon(t *testing.T) {
	terr := validCircleTerritory()
	terr.Geometry = Polygon([]Geo{
		{Lat: 39.0, Lon: -95.0},
		{Lat: 39.0, Lon: -94.0},
		{Lat: 40.0, Lon: -94.5},
	})
	assert.NoError(t, terr.Validate())
}

func TestValidate_EnumeratesEveryViolation(t *testing.T) {
	terr := Territory{
		UserID:   0,
		Name:     "  ",
		Geometry: Circle(Geo{Lat: 39.10, Lon: -94.58}, 0),
		Policy:   AlertPolicy{MinHailSizeInches: -1},
	}

	fields := violatedFields(t, terr.Validate())
	assert.ElementsMatch(t, []string{"user_id", "name", "min_hail_size_inches", "radius_miles"}, fields)
}

func TestValidate_SingleGeometryModeInvariant(t *testing.T) {
	terr := validCircleTerritory()
	terr.Geometry.Vertices = []Geo{{Lat: 39, Lon: -95}, {Lat: 40, Lon: -94}, {Lat: 39.5, Lon: -94}}

	fields := violatedFields(t, terr.Validate())
	assert.Contains(t, fields, "geometry")
}

func TestValidate_PolygonNeedsThreeVertices(t *testing.T) {
	terr := validCircleTerritory()
	terr.Geometry = Polygon([]Geo{{Lat: 39, Lon: -95}, {Lat: 40, Lon: -94}})

	fields := violatedFields(t, terr.Validate())
	assert.Equal(t, []string{"vertices"}, fields)
}

func TestValidate_NoGeometryMode(t *testing.T) {
	terr := validCircleTerritory()
	terr.Geometry = Geometry{}

	fields := violatedFields(t, terr.Validate())
	assert.Equal(t, []string{"geometry"}, fields)
}

func TestValidate_CoordinateRange(t *testing.T) {
	terr := validCircleTerritory()
	terr.Geometry.Center = Geo{Lat: 95, Lon: -200}

	fields := violatedFields(t, terr.Validate())
	assert.Equal(t, []string{"center", "center"}, fields)
}

func TestValidationError_MessageListsAllFields(t *testing.T) {
	terr := Territory{Geometry: Geometry{}}
	err := terr.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "geometry")
}
