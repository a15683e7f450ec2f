package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemcloud/geom"
)

var area = geom.NewBox(0, 0, 10, 10)

func TestParse(t *testing.T) {
	for i, name := range Patterns {
		p, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, Pattern(i), p)
		assert.Equal(t, name, p.String())
	}
	p, err := Parse(" spiral ")
	require.NoError(t, err)
	assert.Equal(t, Spiral, p)

	_, err = Parse("zigzag")
	assert.Error(t, err)
}

func TestSearchEmpty(t *testing.T) {
	for i := range Patterns {
		_, ok := NewState(Pattern(i), area, 1).Search(nil)
		assert.False(t, ok)
	}
}

func TestNonePicksFirst(t *testing.T) {
	s := NewState(None, area, 0)
	openings := []geom.Box{geom.NewBox(6, 0, 10, 4), geom.NewBox(0, 6, 4, 10)}
	b, ok := s.Search(openings)
	require.True(t, ok)
	assert.Equal(t, openings[0], b)
}

func TestRandomIsSeeded(t *testing.T) {
	openings := make([]geom.Box, 50)
	for i := range openings {
		openings[i] = geom.NewBox(i, 0, i+1, 1)
	}
	a := NewState(Random, area, 42)
	b := NewState(Random, area, 42)
	for range 20 {
		x, _ := a.Search(openings)
		y, _ := b.Search(openings)
		assert.Equal(t, x, y)
	}
}

func TestLinearFollowsOrigin(t *testing.T) {
	s := NewState(Linear, area, 0)
	openings := []geom.Box{
		geom.NewBox(5, 5, 7, 7),
		geom.NewBox(0, 0, 2, 2),
		geom.NewBox(3, 0, 5, 2),
	}
	b, _ := s.Search(openings)
	assert.Equal(t, geom.NewBox(0, 0, 2, 2), b)

	s.Next(b)
	assert.Equal(t, geom.PixelCoord{X: 2, Y: 0}, s.Origin)
	b, _ = s.Search(openings)
	assert.Equal(t, geom.NewBox(3, 0, 5, 2), b)

	s.Next(geom.NewBox(8, 0, 10, 2))
	assert.Equal(t, geom.PixelCoord{X: 0, Y: 2}, s.Origin)
	assert.Equal(t, 1, s.Loop)

	s.Next(geom.NewBox(8, 8, 10, 10))
	assert.Equal(t, area.TopLeft(), s.Origin)
}

func TestRayRotates(t *testing.T) {
	s := NewState(Ray, area, 0)
	openings := []geom.Box{
		geom.NewBox(0, 4, 2, 6),
		geom.NewBox(5, 8, 7, 10),
		geom.NewBox(8, 4, 10, 6),
		geom.NewBox(8, 8, 10, 10),
	}
	b, _ := s.Search(openings)
	assert.Equal(t, geom.NewBox(8, 4, 10, 6), b)

	s.Next(b)
	b, _ = s.Search(openings)
	assert.Equal(t, geom.NewBox(8, 8, 10, 10), b)

	for range 7 {
		s.Next(b)
	}
	assert.Equal(t, 0, s.Loop)
}

func TestSpiralStartsAtCenterAndWraps(t *testing.T) {
	s := NewState(Spiral, area, 0)
	b, _ := s.Search([]geom.Box{geom.NewBox(0, 0, 2, 2), geom.NewBox(4, 4, 6, 6)})
	assert.Equal(t, geom.NewBox(4, 4, 6, 6), b)

	for range 200 {
		s.Next(b)
		assert.True(t, area.Contains(geom.BoxAt(s.Origin.X, s.Origin.Y, geom.NewSize(0, 0))), s.Origin)
	}
	assert.Less(t, s.Loop, 100)
}
