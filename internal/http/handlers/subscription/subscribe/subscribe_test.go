package subscribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sublyhq/subly/internal/http/middlewarectx"
	"github.com/sublyhq/subly/internal/models"
	"github.com/sublyhq/subly/internal/storage"
)

// MockService реализует интерфейс subscribe.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Subscribe(ctx context.Context, userUID string, req models.SubscribeRequest) (*models.SubscriptionReceipt, error) {
	args := m.Called(ctx, userUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionReceipt), args.Error(1)
}

func (m *MockService) GetActive(ctx context.Context, userUID string) (*models.SubscriptionDetail, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionDetail), args.Error(1)
}

func TestSubscribeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	endDate := time.Date(2026, 9, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное оформление подписки",
			requestBody: models.SubscribeRequest{PlanID: 2},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "uid-1",
					models.SubscribeRequest{PlanID: 2}).
					Return(&models.SubscriptionReceipt{
						ID:       7,
						PlanName: "Pro",
						EndDate:  endDate,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"plan":"Pro"`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			userUID:        "uid-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "ошибка валидации",
			requestBody:    models.SubscribeRequest{PlanID: 0},
			userUID:        "uid-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field PlanID is a required field`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    models.SubscribeRequest{PlanID: 2},
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:        "несуществующий план",
			requestBody: models.SubscribeRequest{PlanID: 42},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "uid-1",
					models.SubscribeRequest{PlanID: 42}).
					Return(nil, storage.ErrPlanNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"invalid plan"`,
		},
		{
			name:        "уже есть активная подписка",
			requestBody: models.SubscribeRequest{PlanID: 2},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "uid-1",
					models.SubscribeRequest{PlanID: 2}).
					Return(nil, storage.ErrActiveSubscriptionExists)
				m.On("GetActive", mock.Anything, "uid-1").
					Return(&models.SubscriptionDetail{
						Subscription: models.Subscription{EndDate: &endDate},
						PlanName:     "Startup",
					}, nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"plan_name":"Startup"`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: models.SubscribeRequest{PlanID: 2},
			userUID:     "uid-1",
			setupMock: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "uid-1",
					models.SubscribeRequest{PlanID: 2}).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"internal error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/subscribe", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UID, tt.userUID)
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
