// Package geo answers the catalog's "near me" questions: great-circle
// distance between two coordinates and a cheap bounding-box prefilter.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p is a real coordinate and not the zero value.
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) orb() orb.Point { return orb.Point{p.Lng, p.Lat} }

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	return geo.Distance(a.orb(), b.orb()) / 1000
}

// Area is a circle used to filter candidates by distance.
type Area struct {
	center   Point
	radiusKm float64
	bound    orb.Bound
}

// NewArea returns the circle of radiusKm around center.
func NewArea(center Point, radiusKm float64) Area {
	return Area{
		center:   center,
		radiusKm: radiusKm,
		bound:    geo.NewBoundAroundPoint(center.orb(), radiusKm*1000),
	}
}

// Contains reports whether p lies in the area and returns its distance from
// the centre. Points outside the bounding box are rejected without the
// haversine computation.
func (a Area) Contains(p Point) (float64, bool) {
	if !p.Valid() || !a.bound.Contains(p.orb()) {
		return math.Inf(1), false
	}
	d := DistanceKm(a.center, p)
	return d, d <= a.radiusKm
}

// RoundKm rounds a distance to one decimal for display.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}
