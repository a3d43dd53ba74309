package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/models"
)

// bookingResponse is the wire shape of a booking.
type bookingResponse struct {
	ID          string               `json:"id"`
	GuestID     string               `json:"guestId"`
	RoomID      string               `json:"roomId"`
	CheckIn     time.Time            `json:"checkIn"`
	CheckOut    time.Time            `json:"checkOut"`
	Nights      int                  `json:"nights"`
	Status      models.BookingStatus `json:"status"`
	TotalAmount models.Money         `json:"totalAmount"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func toBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		GuestID:     b.GuestID,
		RoomID:      b.RoomID,
		CheckIn:     b.Range.CheckIn,
		CheckOut:    b.Range.CheckOut,
		Nights:      b.Range.Nights(),
		Status:      b.Status,
		TotalAmount: b.TotalAmount,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBookingList(bookings []*models.Booking) map[string]any {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return map[string]any{"bookings": out}
}

type createBookingRequest struct {
	GuestID  string `json:"guestId"`
	RoomID   string `json:"roomId"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	// TotalAmount is accepted for compatibility and ignored; the rate card prices the stay.
	TotalAmount json.RawMessage `json:"totalAmount,omitempty"`
}

type updateDatesRequest struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type roomStatusRequest struct {
	Status string `json:"status"`
}

func actor(r *http.Request) string {
	if c, ok := clientFromContext(r.Context()); ok {
		return c.Name
	}
	return models.SystemActor
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Validation("body", "invalid JSON body")
	}
	return nil
}

// decodeOptionalBody is decodeBody for endpoints whose body may be absent,
// whether sent with Content-Length 0 or chunked with no data.
func decodeOptionalBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Validation("body", "invalid JSON body")
	}
	return nil
}

// parseTime accepts a calendar date or an RFC 3339 timestamp.
func parseTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperrors.Validation(field, "is required")
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation(field, "invalid date format; expected YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), nil
}

func parseRange(checkIn, checkOut string) (models.DateRange, error) {
	in, err := parseTime("checkIn", checkIn)
	if err != nil {
		return models.DateRange{}, err
	}
	out, err := parseTime("checkOut", checkOut)
	if err != nil {
		return models.DateRange{}, err
	}
	return models.NewDateRange(in, out)
}

func parsePrice(field, raw string) (*models.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	m, err := models.ParseMoney(raw)
	if err != nil {
		return nil, apperrors.Validation(field, "must be a non-negative amount")
	}
	return &m, nil
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	in, err := parseTime("checkIn", body.CheckIn)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out, err := parseTime("checkOut", body.CheckOut)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	b, err := s.svc.CreateBooking(r.Context(), models.CreateBookingCommand{
		GuestID:  strings.TrimSpace(body.GuestID),
		RoomID:   strings.TrimSpace(body.RoomID),
		CheckIn:  in,
		CheckOut: out,
		Actor:    actor(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (s *HTTPServer) handleUpdateDates(w http.ResponseWriter, r *http.Request) {
	var body updateDatesRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	dr, err := parseRange(body.CheckIn, body.CheckOut)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	b, err := s.svc.UpdateBookingDates(r.Context(), r.PathValue("id"), dr, actor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body cancelRequest
	// The reason is optional, so is the body.
	if err := decodeOptionalBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	b, err := s.svc.CancelBooking(r.Context(), r.PathValue("id"), strings.TrimSpace(body.Reason), actor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.CheckIn(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.CheckOut(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (s *HTTPServer) handleGuestBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.GetGuestBookings(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingList(bookings))
}

func (s *HTTPServer) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dr, err := parseRange(q.Get("checkIn"), q.Get("checkOut"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	search := models.RoomSearch{Range: dr}
	if raw := strings.TrimSpace(q.Get("roomType")); raw != "" {
		if search.RoomType, err = models.ParseRoomType(raw); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if search.MinPrice, err = parsePrice("minPrice", q.Get("minPrice")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if search.MaxPrice, err = parsePrice("maxPrice", q.Get("maxPrice")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rooms, err := s.svc.SearchAvailableRooms(r.Context(), search)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleSetRoomStatus(w http.ResponseWriter, r *http.Request) {
	var body roomStatusRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status, err := models.ParseRoomStatus(strings.TrimSpace(body.Status))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	room, err := s.svc.SetRoomStatus(r.Context(), r.PathValue("id"), status, actor(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleArrivals(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	bookings, err := s.svc.GetArrivals(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingList(bookings))
}

func (s *HTTPServer) handleDepartures(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	bookings, err := s.svc.GetDepartures(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingList(bookings))
}

func parseDateParam(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Time{}, apperrors.Validation("date", "is required")
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("date", "invalid date format; expected YYYY-MM-DD")
	}
	return date, nil
}

func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeServiceError(w, r, apperrors.Validation("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := s.svc.GetRecentAuditEntries(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
