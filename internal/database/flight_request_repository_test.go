package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSqlxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func requestColumns() []string {
	return []string{
		"id", "booking_number", "customer_id", "customer_contact",
		"origin", "destination", "trip_type", "departure_at", "return_at",
		"passenger_count", "discount_request", "membership_tier", "status",
		"accepted_offer_id", "payment_deadline",
		"paid_at", "payment_method", "transaction_id", "cancelled_at",
		"created_at", "updated_at",
	}
}

func TestCreateFlightRequest(t *testing.T) {
	db, mock := newMockSqlxDB(t)
	repo := NewFlightRequestRepository(db)

	t.Run("Success", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO flight_requests`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		fr := &models.FlightRequest{
			CustomerID:      uuid.New(),
			CustomerContact: "+14155550100",
			Origin:          "TEB",
			Destination:     "VNY",
			TripType:        models.TripTypeOneWay,
			DepartureAt:     now.Add(10 * 24 * time.Hour),
			PassengerCount:  4,
			MembershipTier:  models.TierNone,
		}

		err := repo.Create(fr)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, fr.ID)
		assert.NotEmpty(t, fr.BookingNumber)
		assert.Contains(t, fr.BookingNumber, "JET-")
		assert.Equal(t, models.RequestStatusPending, fr.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO flight_requests`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Create(&models.FlightRequest{CustomerID: uuid.New()})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create flight request")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetVisibleToOperator(t *testing.T) {
	db, mock := newMockSqlxDB(t)
	repo := NewFlightRequestRepository(db)

	operatorID := uuid.New()
	requestID := uuid.New()
	now := time.Now()

	t.Run("Returns Non-Rejected Requests", func(t *testing.T) {
		rows := sqlmock.NewRows(requestColumns()).AddRow(
			requestID.String(), "JET-AB12CD34", uuid.New().String(), "+14155550100",
			"TEB", "VNY", "one_way", now.Add(72*time.Hour), nil,
			4, false, "none", "pending",
			nil, nil,
			nil, nil, nil, nil,
			now, now,
		)

		mock.ExpectQuery(`SELECT (.+) FROM flight_requests fr WHERE NOT EXISTS`).
			WithArgs(operatorID).
			WillReturnRows(rows)

		requests, err := repo.GetVisibleToOperator(operatorID)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, requestID, requests[0].ID)
		assert.Equal(t, models.RequestStatusPending, requests[0].Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Result", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM flight_requests fr WHERE NOT EXISTS`).
			WithArgs(operatorID).
			WillReturnRows(sqlmock.NewRows(requestColumns()))

		requests, err := repo.GetVisibleToOperator(operatorID)
		require.NoError(t, err)
		assert.Empty(t, requests)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByBookingNumber(t *testing.T) {
	db, mock := newMockSqlxDB(t)
	repo := NewFlightRequestRepository(db)

	requestID := uuid.New()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		rows := sqlmock.NewRows(requestColumns()).AddRow(
			requestID.String(), "JET-AB12CD34", uuid.New().String(), "+14155550100",
			"TEB", "VNY", "one_way", now.Add(72*time.Hour), nil,
			4, false, "none", "pending",
			nil, nil,
			nil, nil, nil, nil,
			now, now,
		)

		mock.ExpectQuery(`SELECT (.+) FROM flight_requests`).
			WithArgs("JET-AB12CD34").
			WillReturnRows(rows)

		fr, err := repo.GetByBookingNumber("JET-AB12CD34")
		require.NoError(t, err)
		assert.Equal(t, requestID, fr.ID)
		assert.Equal(t, "JET-AB12CD34", fr.BookingNumber)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM flight_requests`).
			WithArgs("JET-MISSING1").
			WillReturnRows(sqlmock.NewRows(requestColumns()))

		_, err := repo.GetByBookingNumber("JET-MISSING1")
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAcceptOffer(t *testing.T) {
	requestID := uuid.New()
	offerID := uuid.New()
	deadline := time.Now().Add(3 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID, offerID, deadline).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE offers`).
			WithArgs(requestID, offerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE offers`).
			WithArgs(requestID, offerID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := repo.AcceptOffer(requestID, offerID, deadline)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Request Not In Offers Received", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID, offerID, deadline).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.AcceptOffer(requestID, offerID, deadline)
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Offer Already Decided", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flight_requests`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE offers`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.AcceptOffer(requestID, offerID, deadline)
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordPayment(t *testing.T) {
	db, mock := newMockSqlxDB(t)
	repo := NewFlightRequestRepository(db)

	requestID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID, "card", "txn-123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RecordPayment(requestID, "card", "txn-123")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Deadline Passed Or Already Paid", func(t *testing.T) {
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID, "card", "txn-456").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RecordPayment(requestID, "card", "txn-456")
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExpireOverduePayments(t *testing.T) {
	db, mock := newMockSqlxDB(t)
	repo := NewFlightRequestRepository(db)

	t.Run("Expires Overdue Bookings", func(t *testing.T) {
		first := uuid.New()
		second := uuid.New()

		mock.ExpectQuery(`UPDATE flight_requests`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow(first.String()).
				AddRow(second.String()))

		expired, err := repo.ExpireOverduePayments()
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{first, second}, expired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Second Sweep Is A No-Op", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE flight_requests`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		expired, err := repo.ExpireOverduePayments()
		require.NoError(t, err)
		assert.Empty(t, expired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBooking(t *testing.T) {
	requestID := uuid.New()
	operatorID := uuid.New()

	record := func(initiator models.CancellationInitiator) *models.CancellationRecord {
		return &models.CancellationRecord{
			RequestID:        requestID,
			Initiator:        initiator,
			CancellationDate: time.Now(),
		}
	}

	t.Run("Customer Cancellation", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO cancellation_records`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Cancel(requestID, record(models.InitiatorCustomer), nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Operator Allowance Consumed In Same Transaction", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO operator_stats`).
			WithArgs(operatorID, 10).
			WillReturnRows(sqlmock.NewRows([]string{"cancellation_count"}).AddRow(4))
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO cancellation_records`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Cancel(requestID, record(models.InitiatorOperator), &OperatorAllowance{OperatorID: operatorID, Limit: 10})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exhausted Allowance Blocks Without Mutation", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO operator_stats`).
			WithArgs(operatorID, 10).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.Cancel(requestID, record(models.InitiatorOperator), &OperatorAllowance{OperatorID: operatorID, Limit: 10})
		assert.ErrorIs(t, err, ErrLimitReached)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost Race Rolls Back The Counter", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		// The allowance increment succeeds but the booking was already
		// cancelled by the other party; the rollback leaves the counter
		// where it was.
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO operator_stats`).
			WithArgs(operatorID, 10).
			WillReturnRows(sqlmock.NewRows([]string{"cancellation_count"}).AddRow(5))
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Cancel(requestID, record(models.InitiatorOperator), &OperatorAllowance{OperatorID: operatorID, Limit: 10})
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed Record Insert Rolls Back The Transition", func(t *testing.T) {
		db, mock := newMockSqlxDB(t)
		repo := NewFlightRequestRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE flight_requests`).
			WithArgs(requestID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO cancellation_records`).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.Cancel(requestID, record(models.InitiatorCustomer), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create cancellation record")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
