package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/cinebook/cinema-booking-system/api"
	"github.com/cinebook/cinema-booking-system/internal/booking"
)

// holdSeatsScript acquires all requested seat holds atomically. It returns the
// 1-based indexes of the keys already held by another session; an empty reply
// means every hold was taken.
var holdSeatsScript = redis.NewScript(`
    -- KEYS = seat hold keys (e.g., seat_hold:123:1, seat_hold:123:2 etc.)
    -- ARGV = [sessionID, ttl]

    local conflicts = {}

    for i=1, #KEYS do
        local owner = redis.call("GET", KEYS[i])
        if owner and owner ~= ARGV[1] then
            table.insert(conflicts, i)
        end
    end

    if #conflicts > 0 then
        return conflicts
    end

    for i=1, #KEYS do
        redis.call("SET", KEYS[i], ARGV[1], "EX", ARGV[2])
    end

    return {}
`)

// releaseSeatsScript deletes only the holds owned by the calling session.
var releaseSeatsScript = redis.NewScript(`
    -- KEYS = seat hold keys
    -- ARGV = [sessionID]

    for i=1, #KEYS do
        if redis.call("GET", KEYS[i]) == ARGV[1] then
            redis.call("DEL", KEYS[i])
        end
    end

    return "OK"
`)

// filterValidHolds cleans up expired seat holds and returns the currently held
// seat IDs for a screening.
var filterValidHolds = redis.NewScript(`
	local setKey = KEYS[1]
	local screeningId = ARGV[1]
	local cursor = "0"
	local batchSize = 100
	local expiredSeats = {}
	local validSeats = {}

	repeat
		local result = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = result[1]
		local seatIds = result[2]

		for _, seatId in ipairs(seatIds) do
			local holdKey = "seat_hold:" .. screeningId .. ":" .. seatId
			if redis.call("EXISTS", holdKey) == 0 then
				table.insert(expiredSeats, seatId)
			else
				table.insert(validSeats, seatId)
			end
		end
	until cursor == "0"

	if #expiredSeats > 0 then
		redis.call("SREM", setKey, unpack(expiredSeats))
	end

	return validSeats
`)

func seatHoldKey(screeningID, seatID int) string {
	return fmt.Sprintf("seat_hold:%d:%d", screeningID, seatID)
}

func seatHoldSetKey(screeningID int) string {
	return fmt.Sprintf("seat_holds:%d", screeningID)
}

func sessionHoldsKey(sessionID string) string {
	return fmt.Sprintf("session_holds:%s", sessionID)
}

func (app *Application) GetSeatAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	statuses, err := app.bookingService.SeatAvailability(r.Context(), screeningID)
	if err != nil {
		if !app.bookingErrorResponse(w, r, err) {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	heldSeatIds, err := app.validHeldSeatIds(r.Context(), screeningID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.SeatAvailabilityResponse{
		ScreeningId: screeningID,
		Seats:       toSeatResponses(statuses, heldSeatIds),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// validHeldSeatIds returns the seats of the screening currently under a live
// advisory hold, pruning expired entries from the tracking set as it goes.
func (app *Application) validHeldSeatIds(ctx context.Context, screeningID int) (map[int]bool, error) {
	cmd := filterValidHolds.Run(ctx, app.redis, []string{seatHoldSetKey(screeningID)}, screeningID)
	seatIds, err := cmd.Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run filterValidHolds script: %w", err)
	}

	held := make(map[int]bool, len(seatIds))
	for _, seatId := range seatIds {
		held[int(seatId)] = true
	}

	return held, nil
}

func toSeatResponses(statuses []booking.SeatStatus, heldSeatIds map[int]bool) []api.SeatResponse {
	// Seats come pre-sorted by row and column.
	seats := make([]api.SeatResponse, len(statuses))

	for i, v := range statuses {
		status := api.SeatStatusAvailable
		if v.Held || heldSeatIds[v.Seat.ID] {
			status = api.SeatStatusHeld
		}

		seats[i] = api.SeatResponse{
			Id:        v.Seat.ID,
			Row:       v.Seat.Row,
			Column:    v.Seat.Col,
			Type:      v.Seat.Type,
			Surcharge: v.Seat.Surcharge,
			Status:    status,
		}
	}

	return seats
}

func (app *Application) HoldSeatsHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	screeningID, err := app.readIDParam(r, "screeningId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.HoldSeatsRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	statuses, err := app.bookingService.SeatAvailability(r.Context(), screeningID)
	if err != nil {
		if !app.bookingErrorResponse(w, r, err) {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	committed := make(map[int]bool, len(statuses))
	known := make(map[int]bool, len(statuses))
	for _, v := range statuses {
		known[v.Seat.ID] = true
		if v.Held {
			committed[v.Seat.ID] = true
		}
	}

	var conflicting []int

	for _, seatID := range input.SeatIdList {
		if !known[seatID] {
			app.errorResponse(w, r, http.StatusUnprocessableEntity, api.CodeInvalidSeat,
				fmt.Sprintf("seat %d does not belong to this screening", seatID))
			return
		}
		if committed[seatID] {
			conflicting = append(conflicting, seatID)
		}
	}

	if len(conflicting) > 0 {
		logger.Warn("hold attempt on already booked seats", "screening_id", screeningID, "seat_ids", conflicting)
		app.seatsUnavailableResponse(w, r, conflicting)
		return
	}

	sessionID := app.sessionManager.Token(r.Context())

	conflicting, err = app.tryHoldSeats(r.Context(), screeningID, input.SeatIdList, sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, fmt.Errorf("seats couldn't be held: %w", err))
		return
	}

	if len(conflicting) > 0 {
		logger.Warn("hold conflict due to race condition", "screening_id", screeningID, "seat_ids", conflicting)
		app.seatsUnavailableResponse(w, r, conflicting)
		return
	}

	err = app.trackSeatHolds(r.Context(), screeningID, input.SeatIdList, sessionID)
	if err != nil {
		app.rollbackSeatHolds(r.Context(), screeningID, input.SeatIdList, sessionID)
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.HoldSeatsResponse{
		ScreeningId:      screeningID,
		SeatIdList:       input.SeatIdList,
		ExpiresInSeconds: int(app.config.Booking.SeatHoldTTL.Seconds()),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// tryHoldSeats runs the atomic hold script and translates conflicting key
// indexes back into seat IDs.
func (app *Application) tryHoldSeats(ctx context.Context, screeningID int, seatIDs []int, sessionID string) ([]int, error) {
	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = seatHoldKey(screeningID, seatID)
	}

	ttl := int(app.config.Booking.SeatHoldTTL.Seconds())

	indexes, err := holdSeatsScript.Run(ctx, app.redis, keys, sessionID, ttl).Int64Slice()
	if err != nil {
		return nil, err
	}

	conflicting := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		conflicting = append(conflicting, seatIDs[idx-1])
	}

	return conflicting, nil
}

func (app *Application) trackSeatHolds(ctx context.Context, screeningID int, seatIDs []int, sessionID string) error {
	seatIdInterfaces := make([]interface{}, len(seatIDs))
	memberInterfaces := make([]interface{}, len(seatIDs))

	for i, seatID := range seatIDs {
		seatIdInterfaces[i] = seatID
		memberInterfaces[i] = fmt.Sprintf("%d:%d", screeningID, seatID)
	}

	pipe := app.redis.TxPipeline()
	pipe.SAdd(ctx, seatHoldSetKey(screeningID), seatIdInterfaces...)
	pipe.SAdd(ctx, sessionHoldsKey(sessionID), memberInterfaces...)
	pipe.Expire(ctx, sessionHoldsKey(sessionID), app.config.Booking.SeatHoldTTL)

	_, err := pipe.Exec(ctx)

	return err
}

func (app *Application) rollbackSeatHolds(ctx context.Context, screeningID int, seatIDs []int, sessionID string) {
	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = seatHoldKey(screeningID, seatID)
	}

	err := releaseSeatsScript.Run(ctx, app.redis, keys, sessionID).Err()
	if err != nil {
		app.logger.Error("failed to rollback seat holds", "error", err)
	}
}

func (app *Application) ReleaseSeatHoldsHandler(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sessionID := app.sessionManager.Token(r.Context())

	seatIDs, err := app.sessionHeldSeats(r.Context(), sessionID, screeningID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(seatIDs) == 0 {
		app.notFoundResponse(w, r)
		return
	}

	err = app.releaseSeatHolds(r.Context(), screeningID, seatIDs, sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionHeldSeats lists the seats of one screening held by the session.
func (app *Application) sessionHeldSeats(ctx context.Context, sessionID string, screeningID int) ([]int, error) {
	members, err := app.redis.SMembers(ctx, sessionHoldsKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var seatIDs []int

	for _, member := range members {
		var memberScreeningID, seatID int

		_, err := fmt.Sscanf(member, "%d:%d", &memberScreeningID, &seatID)
		if err != nil || memberScreeningID != screeningID {
			continue
		}

		seatIDs = append(seatIDs, seatID)
	}

	return seatIDs, nil
}

// releaseSeatHolds drops the session's holds on the given seats and removes
// them from the tracking sets.
func (app *Application) releaseSeatHolds(ctx context.Context, screeningID int, seatIDs []int, sessionID string) error {
	keys := make([]string, len(seatIDs))
	seatIdInterfaces := make([]interface{}, len(seatIDs))
	memberInterfaces := make([]interface{}, len(seatIDs))

	for i, seatID := range seatIDs {
		keys[i] = seatHoldKey(screeningID, seatID)
		seatIdInterfaces[i] = seatID
		memberInterfaces[i] = fmt.Sprintf("%d:%d", screeningID, seatID)
	}

	err := releaseSeatsScript.Run(ctx, app.redis, keys, sessionID).Err()
	if err != nil {
		return err
	}

	pipe := app.redis.TxPipeline()
	pipe.SRem(ctx, seatHoldSetKey(screeningID), seatIdInterfaces...)
	pipe.SRem(ctx, sessionHoldsKey(sessionID), memberInterfaces...)

	_, err = pipe.Exec(ctx)

	return err
}

// heldByOtherSession returns the requested seats currently held by a session
// other than the caller's. Holds by the caller do not block its own booking.
func (app *Application) heldByOtherSession(ctx context.Context, screeningID int, seatIDs []int, sessionID string) ([]int, error) {
	var conflicting []int

	for _, seatID := range seatIDs {
		owner, err := app.redis.Get(ctx, seatHoldKey(screeningID, seatID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}

		if owner != sessionID {
			conflicting = append(conflicting, seatID)
		}
	}

	return conflicting, nil
}

// migrateSeatHolds re-owns the holds of the old session after a session token
// renewal, so seats picked before authenticating stay held.
func (app *Application) migrateSeatHolds(ctx context.Context, oldSessionId, newSessionId string) error {
	members, err := app.redis.SMembers(ctx, sessionHoldsKey(oldSessionId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	if len(members) == 0 {
		return nil
	}

	holdKeys := make([]string, 0, len(members))

	for _, member := range members {
		var screeningID, seatID int

		_, err := fmt.Sscanf(member, "%d:%d", &screeningID, &seatID)
		if err != nil {
			continue
		}

		holdKeys = append(holdKeys, seatHoldKey(screeningID, seatID))
	}

	ttl := app.config.Booking.SeatHoldTTL

	err = app.redis.Watch(ctx, func(tx *redis.Tx) error {
		for _, holdKey := range holdKeys {
			owner, err := tx.Get(ctx, holdKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			if owner != "" && owner != oldSessionId {
				return fmt.Errorf("seat hold doesn't belong to current session")
			}
		}

		pipe := tx.TxPipeline()

		for _, holdKey := range holdKeys {
			pipe.Set(ctx, holdKey, newSessionId, ttl)
		}

		_, err := pipe.Exec(ctx)

		return err
	}, holdKeys...)

	if err != nil {
		return fmt.Errorf(
			"failed to migrate seat holds from old session %s to new session %s: %w",
			oldSessionId,
			newSessionId,
			err)
	}

	memberInterfaces := make([]interface{}, len(members))
	for i, member := range members {
		memberInterfaces[i] = member
	}

	pipe := app.redis.TxPipeline()
	pipe.SAdd(ctx, sessionHoldsKey(newSessionId), memberInterfaces...)
	pipe.Expire(ctx, sessionHoldsKey(newSessionId), ttl)
	pipe.Del(ctx, sessionHoldsKey(oldSessionId))

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for hold migration: %w", err)
	}

	return nil
}
