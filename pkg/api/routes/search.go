package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"

	"github.com/latemate/latemate/pkg/hsp"
	"github.com/latemate/latemate/pkg/journey"
	"github.com/latemate/latemate/pkg/results"
)

// APIProvider builds the upstream API a search run talks to.
type APIProvider func() results.API

// SearchRouter runs the whole resolution pipeline server-side, for clients
// that want resolved journeys rather than raw HSP payloads.
func SearchRouter(router fiber.Router, provider APIProvider) {
	router.Get("/", searchHandler(provider))
}

type journeyDocument struct {
	ServiceID          string      `json:"service_id" groups:"basic"`
	State              string      `json:"state" groups:"basic"`
	TocCode            string      `json:"toc_code" groups:"basic"`
	OriginDate         string      `json:"origin_date" groups:"basic"`
	ScheduledDeparture string      `json:"scheduled_departure" groups:"basic"`
	ScheduledArrival   string      `json:"scheduled_arrival" groups:"basic"`
	ActualArrival      *string     `json:"actual_arrival,omitempty" groups:"basic"`
	FromStation        hsp.Station `json:"from_station" groups:"basic"`
	ToStation          hsp.Station `json:"to_station" groups:"basic"`
	OriginStation      hsp.Station `json:"origin_station" groups:"detailed"`
	TerminatingStation hsp.Station `json:"terminating_station" groups:"detailed"`
	DisruptionCode     *int        `json:"disruption_code,omitempty" groups:"detailed"`
}

func searchHandler(provider APIProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, err := searchParams(c)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)

			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		controller := results.NewController(provider())

		if err := controller.Run(c.Context(), params); err != nil {
			c.SendStatus(fiber.StatusBadGateway)

			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if !c.QueryBool("hide_timely", true) {
			controller.ToggleTimely()
		}
		controller.SetPage(c.QueryInt("page", 1))

		groups := []string{"basic"}
		if c.QueryBool("detailed", false) {
			groups = append(groups, "detailed")
		}

		var documents []journeyDocument
		for _, j := range controller.VisibleJourneys() {
			documents = append(documents, newJourneyDocument(j))
		}

		reduced, err := sheriff.Marshal(&sheriff.Options{Groups: groups}, documents)
		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)

			return c.JSON(fiber.Map{
				"error": "Sheriff could not reduce journeys",
			})
		}

		return c.JSON(fiber.Map{
			"state":      controller.State(),
			"progress":   controller.Progress(),
			"page":       controller.Page(),
			"page_count": controller.PageCount(),
			"journeys":   reduced,
		})
	}
}

func searchParams(c *fiber.Ctx) (results.Params, error) {
	fromDate, err := hsp.ParseDate(c.Query("from_date"))
	if err != nil {
		return results.Params{}, err
	}

	toDate, err := hsp.ParseDate(c.Query("to_date"))
	if err != nil {
		return results.Params{}, err
	}

	return results.Params{
		FromStation: c.Query("from"),
		ToStation:   c.Query("to"),
		FromDate:    fromDate,
		ToDate:      toDate,
		Days:        c.Query("days", "WEEKDAY"),
		Tolerance:   time.Duration(c.QueryInt("tolerance", 0)) * time.Minute,
	}, nil
}

func newJourneyDocument(j *journey.Journey) journeyDocument {
	document := journeyDocument{
		ServiceID:          j.ServiceID.String(),
		State:              string(j.State()),
		TocCode:            j.TocCode,
		OriginDate:         j.OriginDate.Format("2006-01-02"),
		ScheduledDeparture: j.ScheduledDeparture().Format("15:04"),
		ScheduledArrival:   j.ScheduledArrival().Format("15:04"),
		FromStation:        j.FromStation,
		ToStation:          j.ToStation,
		OriginStation:      j.OriginStation,
		TerminatingStation: j.TerminatingStation,
		DisruptionCode:     j.DisruptionCode(),
	}

	if arrival := j.ActualArrival(); arrival != nil {
		formatted := arrival.Format("15:04")
		document.ActualArrival = &formatted
	}

	return document
}
