package openroute

import "github.com/samirrijal/greenroute/internal/core/domain"

// profileIDs maps travel profiles to OpenRouteService profile names.
var profileIDs = map[domain.TravelProfile]string{
	domain.ProfileFoot:       "foot-walking",
	domain.ProfileCar:        "driving-car",
	domain.ProfileBike:       "cycling-regular",
	domain.ProfileWheelchair: "wheelchair",
}

// ProfileID returns the provider profile for p. Unknown values pass through
// unchanged so provider-native names such as "foot-hiking" keep working.
// An empty profile means foot.
func ProfileID(p domain.TravelProfile) string {
	if p == "" {
		p = domain.ProfileFoot
	}
	if id, ok := profileIDs[p]; ok {
		return id
	}
	return string(p)
}
