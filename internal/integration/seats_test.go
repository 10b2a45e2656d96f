package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/cinebook/cinema-booking-system/api"
)

type SeatHoldTestSuite struct {
	BaseSuite
}

func TestSeatHoldSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}
	suite.Run(t, new(SeatHoldTestSuite))
}

func (s *SeatHoldTestSuite) TestGetSeatAvailabilityHandler() {
	scenarios := []Scenario{
		{
			Name:             "returns 404 for an unknown screening",
			Method:           "GET",
			URL:              screeningURL(999, "seats"),
			ExpectedStatus:   http.StatusNotFound,
			ExpectedResponse: `{"code": "NOT_FOUND", "message": "The requested resource not found"}`,
		},
		{
			Name:           "returns 400 for a malformed screening ID",
			Method:         "GET",
			URL:            "/screenings/abc/seats",
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name:           "lists active seats with their price modifiers",
			Method:         "GET",
			URL:            screeningURL(6, "seats"),
			ExpectedStatus: http.StatusOK,
			ExpectedResponse: `{
				"screeningId": 6,
				"seats": [
					{"row": 1, "column": 1, "type": "standard", "surcharge": "0", "status": "AVAILABLE"},
					{"row": 1, "column": 2, "type": "standard", "surcharge": "0", "status": "AVAILABLE"},
					{"row": 1, "column": 3, "type": "standard", "surcharge": "0", "status": "AVAILABLE"},
					{"row": 2, "column": 1, "type": "recliner", "surcharge": "2000", "status": "AVAILABLE"},
					{"row": 2, "column": 2, "type": "recliner", "surcharge": "2000", "status": "AVAILABLE"}
				]
			}`,
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *SeatHoldTestSuite) TestHoldSeatsHandler() {
	cookies := sessionCookies(s.T(), s.app, TestUserId)
	otherCookies := sessionCookies(s.T(), s.app, TestAdminId)

	scenarios := []Scenario{
		{
			Name:             "returns 401 if user is not authenticated",
			Method:           "POST",
			URL:              screeningURL(1, "holds"),
			Body:             jsonBody(s.T(), api.HoldSeatsRequest{SeatIdList: []int{1}}),
			ExpectedStatus:   http.StatusUnauthorized,
			ExpectedResponse: `{"code": "UNAUTHORIZED", "message": "You must be authenticated to access this resource"}`,
		},
		{
			Name:           "returns 422 for an unknown seat",
			Method:         "POST",
			URL:            screeningURL(1, "holds"),
			Body:           jsonBody(s.T(), api.HoldSeatsRequest{SeatIdList: []int{999}}),
			Cookies:        cookies,
			ExpectedStatus: http.StatusUnprocessableEntity,
		},
		{
			Name:           "places a hold on free seats",
			Method:         "POST",
			URL:            screeningURL(1, "holds"),
			Body:           jsonBody(s.T(), api.HoldSeatsRequest{SeatIdList: []int{1, 5}}),
			Cookies:        cookies,
			ExpectedStatus: http.StatusOK,
			ExpectedResponse: `{
				"screeningId": 1,
				"seatIdList": [1, 5],
				"expiresInSeconds": 600
			}`,
		},
		{
			Name:           "marks held seats in the availability listing",
			Method:         "GET",
			URL:            screeningURL(1, "seats"),
			ExpectedStatus: http.StatusOK,
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				require.ElementsMatch(t, []int{1, 5}, heldSeatIds(t, res))
			},
		},
		{
			Name:           "re-holding your own seats extends the hold",
			Method:         "POST",
			URL:            screeningURL(1, "holds"),
			Body:           jsonBody(s.T(), api.HoldSeatsRequest{SeatIdList: []int{1}}),
			Cookies:        cookies,
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "another session cannot hold the same seats",
			Method:         "POST",
			URL:            screeningURL(1, "holds"),
			Body:           jsonBody(s.T(), api.HoldSeatsRequest{SeatIdList: []int{1, 2}}),
			Cookies:        otherCookies,
			ExpectedStatus: http.StatusConflict,
			ExpectedResponse: `{
				"code": "SEATS_UNAVAILABLE",
				"message": "One or more of the selected seats are no longer available",
				"conflictingSeatIds": [1]
			}`,
		},
		{
			Name:           "another session cannot book held seats",
			Method:         "POST",
			URL:            "/bookings",
			Body:           jsonBody(s.T(), api.CreateBookingRequest{ScreeningId: 1, SeatIdList: []int{5}}),
			Cookies:        otherCookies,
			ExpectedStatus: http.StatusConflict,
			ExpectedResponse: `{
				"code": "SEATS_UNAVAILABLE",
				"message": "One or more of the selected seats are no longer available",
				"conflictingSeatIds": [5]
			}`,
		},
		{
			Name:           "releases the session's holds",
			Method:         "DELETE",
			URL:            screeningURL(1, "holds"),
			Cookies:        cookies,
			ExpectedStatus: http.StatusNoContent,
		},
		{
			Name:           "released seats are available again",
			Method:         "GET",
			URL:            screeningURL(1, "seats"),
			ExpectedStatus: http.StatusOK,
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				require.Empty(t, heldSeatIds(t, res))
			},
		},
		{
			Name:           "releasing again returns 404",
			Method:         "DELETE",
			URL:            screeningURL(1, "holds"),
			Cookies:        cookies,
			ExpectedStatus: http.StatusNotFound,
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *SeatHoldTestSuite) TestHoldingCommittedSeats() {
	cookies := sessionCookies(s.T(), s.app, TestUserId)

	body := jsonBody(s.T(), api.CreateBookingRequest{ScreeningId: 2, SeatIdList: []int{3}})
	req, err := prepareRequest(http.MethodPost, "/bookings", body, nil, cookies)
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	s.app.App.Routes().ServeHTTP(rec, req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	hold := Scenario{
		Name:           "a booked seat cannot be held",
		Method:         "POST",
		URL:            screeningURL(2, "holds"),
		Body:           jsonBody(s.T(), api.HoldSeatsRequest{SeatIdList: []int{3}}),
		Cookies:        cookies,
		ExpectedStatus: http.StatusConflict,
		ExpectedResponse: `{
			"code": "SEATS_UNAVAILABLE",
			"message": "One or more of the selected seats are no longer available",
			"conflictingSeatIds": [3]
		}`,
	}
	hold.Run(s.T(), s.app)

	availability := Scenario{
		Name:           "a booked seat shows as held in the listing",
		Method:         "GET",
		URL:            screeningURL(2, "seats"),
		ExpectedStatus: http.StatusOK,
		AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
			require.ElementsMatch(t, []int{3}, heldSeatIds(t, res))
		},
	}
	availability.Run(s.T(), s.app)
}

func heldSeatIds(t testing.TB, res *http.Response) []int {
	var payload api.SeatAvailabilityResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))

	var held []int
	for _, seat := range payload.Seats {
		if seat.Status == api.SeatStatusHeld {
			held = append(held, seat.Id)
		}
	}
	return held
}
