package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/broadcast"
	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/handler"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/JaePyJs/CLMS-sub014/pkg/validate"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/JaePyJs/CLMS-sub014/internal/handler/mocks"
)

const sessionUID = "7d4f0c7e-8a4b-4f0e-9a3e-2f5b6c1d8e90"

func openRecord() model.CheckoutRecord {
	return model.CheckoutRecord{
		SessionUID: sessionUID,
		ResourceID: "book-golang",
		PatronID:   "stu-1001",
		Category:   "BOOK",
		State:      model.StateOpen,
		StartTime:  time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
		DueTime:    time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC),
	}
}

func returnedRecord() model.CheckoutRecord {
	rec := openRecord()
	rec.State = model.StateReturned
	closeTime := time.Date(2024, 4, 17, 10, 0, 0, 0, time.UTC)
	fine := int64(100)
	rec.CloseTime = &closeTime
	rec.OverdueUnits = 2
	rec.FineCents = &fine
	return rec
}

func newTestRouter(t *testing.T, svc handler.CirculationService) *echo.Echo {
	t.Helper()
	log := zap.NewExample().Named("test")
	h := handler.New(svc, broadcast.New(log, 8), log)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.POST("/checkouts", h.Checkout)
	e.POST("/checkouts/:sessionUid/return", h.Return)
	e.POST("/checkouts/:sessionUid/cancel", h.Cancel)
	e.GET("/checkouts", h.ListByPatron)
	e.GET("/checkouts/overdue", h.ListOverdue)
	return e
}

func TestHandler_Checkout(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"patronId":"stu-1001","resourceId":"book-golang"}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Checkout(context.Background(), model.CheckoutRequest{PatronID: "stu-1001", ResourceID: "book-golang"}).
					Return(openRecord(), nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"sessionUid":"7d4f0c7e-8a4b-4f0e-9a3e-2f5b6c1d8e90","resourceId":"book-golang","patronId":"stu-1001","category":"BOOK","state":"OPEN","startTime":"2024-04-01T10:00:00Z","dueTime":"2024-04-15T10:00:00Z","overdueUnits":0}`,
			},
		},
		{
			name: "err. pool exhausted",
			body: `{"patronId":"stu-1001","resourceId":"book-golang"}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Checkout(context.Background(), gomock.Any()).
					Return(model.CheckoutRecord{}, errs.ErrResourceUnavailable)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"no units available"}`,
			},
		},
		{
			name: "err. station occupied",
			body: `{"patronId":"stu-1001","resourceId":"station-7"}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Checkout(context.Background(), gomock.Any()).
					Return(model.CheckoutRecord{}, errs.ErrAlreadyCheckedOut)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"already checked out"}`,
			},
		},
		{
			name: "err. policy violation",
			body: `{"patronId":"stu-banned","resourceId":"book-golang"}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Checkout(context.Background(), gomock.Any()).
					Return(model.CheckoutRecord{}, &errs.PolicyViolationError{Reason: errs.ReasonBanned})
			},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"message":"policy violation: PATRON_BANNED"}`,
			},
		},
		{
			name:         "err. missing patronId",
			body:         `{"resourceId":"book-golang"}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockCirculationService(c)
			tt.mockBehavior(svc)
			e := newTestRouter(t, svc)

			r := httptest.NewRequest(http.MethodPost, "/checkouts", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_Return(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok with fine",
			body: `{"returnTime":"2024-04-17T10:00:00Z"}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Return(context.Background(), sessionUID, gomock.Any()).
					Return(returnedRecord(), nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"sessionUid":"7d4f0c7e-8a4b-4f0e-9a3e-2f5b6c1d8e90","resourceId":"book-golang","patronId":"stu-1001","category":"BOOK","state":"RETURNED","startTime":"2024-04-01T10:00:00Z","dueTime":"2024-04-15T10:00:00Z","closeTime":"2024-04-17T10:00:00Z","overdueUnits":2,"fineCents":100}`,
			},
		},
		{
			name: "err. already closed",
			body: `{}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Return(context.Background(), sessionUID, gomock.Any()).
					Return(model.CheckoutRecord{}, errs.ErrAlreadyClosed)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"session already closed"}`,
			},
		},
		{
			name: "err. not found",
			body: `{}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Return(context.Background(), sessionUID, gomock.Any()).
					Return(model.CheckoutRecord{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockCirculationService(c)
			tt.mockBehavior(svc)
			e := newTestRouter(t, svc)

			r := httptest.NewRequest(http.MethodPost, "/checkouts/"+sessionUID+"/return", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Cancel(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)

	reason := "damaged copy"
	rec := openRecord()
	rec.State = model.StateCancelled
	closeTime := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	rec.CloseTime = &closeTime
	rec.CancelReason = &reason
	svc.EXPECT().
		Cancel(context.Background(), sessionUID, reason).
		Return(rec, nil)

	e := newTestRouter(t, svc)
	r := httptest.NewRequest(http.MethodPost, "/checkouts/"+sessionUID+"/cancel", strings.NewReader(`{"reason":"damaged copy"}`))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()

	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"state":"CANCELLED"`)
	require.Contains(t, w.Body.String(), `"cancelReason":"damaged copy"`)
}

func TestHandler_ListOverdue(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)

	rec := openRecord()
	rec.OverdueUnits = 3
	svc.EXPECT().
		ListOverdue(context.Background()).
		Return([]model.CheckoutRecord{rec}, nil)

	e := newTestRouter(t, svc)
	r := httptest.NewRequest(http.MethodGet, "/checkouts/overdue", http.NoBody)
	w := httptest.NewRecorder()

	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"overdueUnits":3`)
}

func TestHandler_ListByPatron(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockCirculationService(c)
	e := newTestRouter(t, svc)

	r := httptest.NewRequest(http.MethodGet, "/checkouts", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, `{"message":"patronId is empty"}`, strings.Trim(w.Body.String(), "\n"))
}
