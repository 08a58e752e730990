package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeatherReadingSane(t *testing.T) {
	tests := []struct {
		name    string
		reading WeatherReading
		want    bool
	}{
		{"typical", WeatherReading{Temperature: 22, Humidity: 55, UVIndex: 6}, true},
		{"upper temperature bound", WeatherReading{Temperature: 50}, true},
		{"lower temperature bound", WeatherReading{Temperature: -50}, true},
		{"temperature above bound", WeatherReading{Temperature: 51}, false},
		{"temperature below bound", WeatherReading{Temperature: -51}, false},
		{"humidity at bound", WeatherReading{Humidity: 100}, true},
		{"humidity above bound", WeatherReading{Humidity: 101}, false},
		{"uv at bound", WeatherReading{UVIndex: 12}, true},
		{"uv above bound", WeatherReading{UVIndex: 13}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reading.Sane())
		})
	}
}

func TestValidRating(t *testing.T) {
	assert.False(t, ValidRating(0))
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(100))
	assert.False(t, ValidRating(101))
}

func TestVocabularyKindValid(t *testing.T) {
	for _, k := range VocabularyKinds {
		assert.True(t, k.Valid(), "%s should be valid", k)
	}
	assert.False(t, VocabularyKind("soil").Valid())
}

func TestCloneIsolation(t *testing.T) {
	t.Run("template", func(t *testing.T) {
		orig := Template{
			CropTypes:  []string{"maize"},
			Actions:    []string{"irrigate"},
			Conditions: []ConditionRange{{Metric: "soil-moisture", Min: 10, Max: 30}},
		}
		c := orig.Clone()
		c.CropTypes[0] = "rice"
		c.Actions[0] = "wait"
		c.Conditions[0].Max = 99

		assert.Equal(t, "maize", orig.CropTypes[0])
		assert.Equal(t, "irrigate", orig.Actions[0])
		assert.Equal(t, int64(30), orig.Conditions[0].Max)
	})

	t.Run("participant", func(t *testing.T) {
		orig := Participant{HealthMetrics: []string{"leaf-color"}, Goals: []string{"yield"}}
		c := orig.Clone()
		c.HealthMetrics[0] = "x"
		c.Goals[0] = "y"

		assert.Equal(t, "leaf-color", orig.HealthMetrics[0])
		assert.Equal(t, "yield", orig.Goals[0])
	})

	t.Run("feedback", func(t *testing.T) {
		comment := "helpful"
		orig := Feedback{Comment: &comment}
		c := orig.Clone()
		*c.Comment = "changed"

		assert.Equal(t, "helpful", *orig.Comment)
	})
}
