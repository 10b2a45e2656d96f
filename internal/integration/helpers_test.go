package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(&c)
	}

	return req, nil
}

func compareResponse(t testing.TB, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indeterministic fields while comparing
	ignored := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		return k == "timestamp" || k == "requestId" || k == "createdAt" ||
			k == "id" || k == "bookingId" || k == "startTime"
	})

	// monetary amounts are serialized as decimal strings, compare them
	// numerically so "10000" and "10000.00" are equal
	amounts := cmp.FilterValues(func(a, b string) bool {
		_, errA := decimal.NewFromString(a)
		_, errB := decimal.NewFromString(b)
		return errA == nil && errB == nil
	}, cmp.Comparer(func(a, b string) bool {
		return decimal.RequireFromString(a).Equal(decimal.RequireFromString(b))
	}))

	if diff := cmp.Diff(expected, actual, ignored, amounts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func executeSQL(t testing.TB, app *TestApp, query string, args ...any) {
	_, err := app.DB.Exec(context.Background(), query, args...)
	require.NoError(t, err)
}

// sessionCookies establishes a session for the given user through the exchange
// endpoint and returns the resulting session cookies.
func sessionCookies(t testing.TB, app *TestApp, userId int) []http.Cookie {
	body, err := json.Marshal(map[string]any{"userId": userId, "admin": userId == TestAdminId})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", TestExchangeSecret)

	rec := httptest.NewRecorder()
	app.App.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	res := rec.Result()
	defer res.Body.Close()

	var cookies []http.Cookie
	for _, c := range res.Cookies() {
		cookies = append(cookies, *c)
	}
	require.NotEmpty(t, cookies)

	return cookies
}

func seedBaseData(t testing.TB, app *TestApp) {
	executeSQL(t, app, `
		INSERT INTO users (id, first_name, last_name, email) VALUES
			(1, 'John', 'Doe', 'john.doe@example.com'),
			(2, 'Ada', 'Admin', 'ada.admin@example.com');
		SELECT setval('users_id_seq', 10);

		INSERT INTO movies (id, title) VALUES (1, 'The Long Interval');
		SELECT setval('movies_id_seq', 10);

		INSERT INTO theaters (id, name) VALUES (1, 'Downtown Cinema');
		SELECT setval('theaters_id_seq', 10);

		INSERT INTO screens (id, theater_id, name) VALUES (1, 1, 'Screen A');
		SELECT setval('screens_id_seq', 10);

		INSERT INTO seat_types (id, name, surcharge) VALUES
			(1, 'standard', 0),
			(2, 'recliner', 2000);
		SELECT setval('seat_types_id_seq', 10);

		INSERT INTO seats (id, screen_id, seat_row, seat_col, seat_type_id, active) VALUES
			(1, 1, 1, 1, 1, TRUE),
			(2, 1, 1, 2, 1, TRUE),
			(3, 1, 1, 3, 1, TRUE),
			(4, 1, 1, 4, 1, FALSE),
			(5, 1, 2, 1, 2, TRUE),
			(6, 1, 2, 2, 2, TRUE);
		SELECT setval('seats_id_seq', 10);

		INSERT INTO screenings (id, movie_id, screen_id, start_time, base_price, status) VALUES
			(1, 1, 1, now() + interval '3 hours', 10000, 'active'),
			(2, 1, 1, now() + interval '3 hours', 10000, 'active'),
			(3, 1, 1, now() + interval '3 hours', 10000, 'active'),
			(4, 1, 1, now() + interval '3 hours', 10000, 'active'),
			(5, 1, 1, now() + interval '10 minutes', 10000, 'active'),
			(6, 1, 1, now() + interval '3 hours', 10000, 'active'),
			(7, 1, 1, now() + interval '3 hours', 10000, 'active'),
			(8, 1, 1, now() - interval '1 hour', 10000, 'active'),
			(9, 1, 1, now() + interval '3 hours', 10000, 'canceled'),
			(10, 1, 1, now() + interval '3 hours', 10000, 'active');
		SELECT setval('screenings_id_seq', 20);

		INSERT INTO coupons (id, code, type, value, max_discount, issue_date, expiry_date, usage_limit_per_user, total_usage_limit) VALUES
			(1, 'TENOFF', 'percent', 10, 2000, now() - interval '1 day', now() + interval '30 days', 1, 100);
		SELECT setval('coupons_id_seq', 10);

		INSERT INTO user_coupons (id, user_id, coupon_id) VALUES (1, 1, 1);
		SELECT setval('user_coupons_id_seq', 10);
	`)
}

func jsonBody(t testing.TB, v any) io.Reader {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func fetchBookingStatus(t testing.TB, app *TestApp, bookingId int) (status, paymentStatus string) {
	row := app.DB.QueryRow(context.Background(),
		"SELECT status, payment_status FROM bookings WHERE id = $1", bookingId)
	require.NoError(t, row.Scan(&status, &paymentStatus))
	return status, paymentStatus
}

func fetchCouponGrant(t testing.TB, app *TestApp, grantId int) (used bool, bookingId *int) {
	row := app.DB.QueryRow(context.Background(),
		"SELECT used, booking_id FROM user_coupons WHERE id = $1", grantId)
	require.NoError(t, row.Scan(&used, &bookingId))
	return used, bookingId
}

func liveCommitmentCount(t testing.TB, app *TestApp, screeningId int) int {
	var n int
	row := app.DB.QueryRow(context.Background(),
		"SELECT count(*) FROM seat_commitments WHERE screening_id = $1 AND NOT released", screeningId)
	require.NoError(t, row.Scan(&n))
	return n
}

func screeningURL(screeningId int, suffix string) string {
	return fmt.Sprintf("/screenings/%d/%s", screeningId, suffix)
}
