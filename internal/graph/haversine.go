package graph

import "math"

// EarthRadiusKm is the mean Earth radius used for all great-circle lengths.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two
// coordinates given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func nodeDistance(a, b Node) float64 { return Haversine(a.Lat, a.Lon, b.Lat, b.Lon) }
