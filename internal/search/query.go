package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

const (
	dateLayout   = "2006-01-02"
	maxTravelers = 9
)

// Input is a search request as it arrives from the client
type Input struct {
	Origin      string
	Destination string
	DepartDate  string
	ReturnDate  string
	Adults      int
	Children    int
	Infants     int
	Cabin       string
}

// BuildQuery validates the input and produces one direction per leg,
// the return leg with origin and destination reversed.
func BuildQuery(in Input) (models.SearchQuery, error) {
	origin := strings.ToUpper(strings.TrimSpace(in.Origin))
	destination := strings.ToUpper(strings.TrimSpace(in.Destination))

	if !isIATA(origin) {
		return models.SearchQuery{}, fmt.Errorf("origin must be a 3-letter IATA code")
	}
	if !isIATA(destination) {
		return models.SearchQuery{}, fmt.Errorf("destination must be a 3-letter IATA code")
	}
	if origin == destination {
		return models.SearchQuery{}, errors.New("origin and destination must differ")
	}

	depart, err := time.Parse(dateLayout, strings.TrimSpace(in.DepartDate))
	if err != nil {
		return models.SearchQuery{}, fmt.Errorf("departure date must be YYYY-MM-DD")
	}

	pax := models.PassengerCounts{Adults: in.Adults, Children: in.Children, Infants: in.Infants}
	switch {
	case pax.Adults < 1:
		return models.SearchQuery{}, errors.New("at least one adult is required")
	case pax.Children < 0 || pax.Infants < 0:
		return models.SearchQuery{}, errors.New("passenger counts must not be negative")
	case pax.Infants > pax.Adults:
		return models.SearchQuery{}, errors.New("each infant must travel with an adult")
	case pax.Adults+pax.Children > maxTravelers:
		return models.SearchQuery{}, fmt.Errorf("at most %d seated passengers per booking", maxTravelers)
	}

	cabin := models.CabinClass(strings.ToLower(strings.TrimSpace(in.Cabin)))
	switch cabin {
	case "":
		cabin = models.CabinEconomy
	case models.CabinEconomy, models.CabinBusiness, models.CabinFirst:
	default:
		return models.SearchQuery{}, fmt.Errorf("unknown cabin class %q", in.Cabin)
	}

	q := models.SearchQuery{
		Directions: []models.Direction{{From: origin, To: destination, Date: depart}},
		Passengers: pax,
		Cabin:      cabin,
	}

	if rd := strings.TrimSpace(in.ReturnDate); rd != "" {
		ret, err := time.Parse(dateLayout, rd)
		if err != nil {
			return models.SearchQuery{}, fmt.Errorf("return date must be YYYY-MM-DD")
		}
		if ret.Before(depart) {
			return models.SearchQuery{}, errors.New("return date must not be before departure date")
		}
		q.Directions = append(q.Directions, models.Direction{From: destination, To: origin, Date: ret})
	}

	return q, nil
}

func isIATA(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
