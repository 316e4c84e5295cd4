package sendnotification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"afh-workers/internal/common/aws"
	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockEmailSender struct{ mock.Mock }

func (m *MockEmailSender) SendEmail(ctx context.Context, email aws.Email) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type MockSMSSender struct{ mock.Mock }

func (m *MockSMSSender) SendSMS(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}

type fakeSESAPI struct {
	input *ses.SendEmailInput
}

func (f *fakeSESAPI) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil
}

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 10, 14, 16, 0, 0, 0, time.UTC)

var recipientColumns = []string{"id", "full_name", "email", "phone", "notifications_enabled"}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled:  true,
		SMSEnabled:    true,
		SMSPriority:   PriorityHigh,
		MaxTopMatches: 2,
		ResultsURL:    "https://afh.example.com/results/{requestId}",
		RetryFailed:   true,
		Timeout:       5 * time.Second,
	}
}

func createTestHandler(t *testing.T, config *Config, email EmailSender, sms SMSSender) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if config == nil {
		config = createTestConfig()
	}
	h := NewHandler(config, db, email, sms, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mockDB
}

func ranked(name string, overall, priceMin int) models.RankedFacility {
	return models.RankedFacility{
		Facility: models.Facility{ID: strings.ToLower(name), Name: name, PriceMin: priceMin},
		MatchScore: models.MatchScore{
			Overall: overall,
			Tier:    models.TierFor(overall),
		},
	}
}

// ==========================
// Success Scenarios
// ==========================

func TestHandler_Execute_MatchResultsReady(t *testing.T) {
	email := new(MockEmailSender)
	sms := new(MockSMSSender)
	h, mockDB := createTestHandler(t, nil, email, sms)

	mockDB.ExpectQuery("FROM family_contacts WHERE id").
		WithArgs("fam-1").
		WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("fam-1", "Dana Reyes", "dana@example.com", "+12065550100", true))

	var sent aws.Email
	email.On("SendEmail", mock.Anything, mock.AnythingOfType("aws.Email")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(aws.Email) }).
		Return("msg-1", nil)

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:      "fam-1",
		RecipientType:    models.RecipientFamily,
		NotificationType: models.NotificationMatchResultsReady,
		Priority:         PriorityHigh,
		RequestID:        "req-42",
		CareNeeds: &models.CareNeeds{
			CareType: models.CareTypeDementia,
			Location: models.Location{City: "Seattle"},
		},
		RankedFacilities: []models.RankedFacility{
			ranked("Maple House", 92, 4500),
			ranked("Cedar Home", 74, 0),
			ranked("Birch Cottage", 60, 3900),
		},
		TotalMatched: 7,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{ChannelEmail}, output.Channels)
	assert.Empty(t, output.FailedChannels)
	assert.Equal(t, "2026-10-14T16:00:00Z", output.SentAt)
	assert.NotEmpty(t, output.NotificationID)

	assert.Equal(t, "dana@example.com", sent.To)
	assert.Equal(t, "Your adult family home matches are ready", sent.Subject)
	assert.Contains(t, sent.Text, "Hi Dana Reyes,")
	assert.Contains(t, sent.Text, "We found 7 homes offering dementia care near Seattle.")
	assert.Contains(t, sent.Text, "1. Maple House (92/100, Excellent match), from $4,500/mo")
	assert.Contains(t, sent.Text, "2. Cedar Home (74/100, Good match)\n")
	assert.NotContains(t, sent.Text, "Birch Cottage")
	assert.Contains(t, sent.Text, "https://afh.example.com/results/req-42")

	// No SMS body on this template, even at high priority.
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
	email.AssertExpectations(t)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestHandler_Execute_FormGenerated(t *testing.T) {
	email := new(MockEmailSender)
	h, mockDB := createTestHandler(t, nil, email, nil)

	mockDB.ExpectQuery("FROM staff_members WHERE id").
		WithArgs("staff-9").
		WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("staff-9", "Jo Kim", "jo@maple.example.com", "", true))

	email.On("SendEmail", mock.Anything, mock.MatchedBy(func(e aws.Email) bool {
		return e.Subject == "Medication Administration Record ready for Ann Lee" &&
			strings.Contains(e.Text, "Download: https://files.example.com/mar.pdf") &&
			strings.Contains(e.Text, "This link expires 2026-10-21T16:00:00Z.")
	})).Return("msg-2", nil)

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:      "staff-9",
		RecipientType:    models.RecipientStaff,
		NotificationType: models.NotificationFormGenerated,
		FormType:         models.FormTypeMAR,
		DownloadURL:      "https://files.example.com/mar.pdf",
		ExpiresAt:        "2026-10-21T16:00:00Z",
		Metadata:         map[string]interface{}{"residentName": "Ann Lee"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	email.AssertExpectations(t)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestHandler_Execute_IncidentReported(t *testing.T) {
	incident := map[string]interface{}{
		"facilityName": "Maple House",
		"residentName": "Ann Lee",
		"incidentDate": "2026-10-13",
		"summary":      "Resident slipped in the bathroom; no injury observed.",
		"reportedBy":   "Jo Kim",
	}

	tests := []struct {
		name         string
		priority     string
		smsErr       error
		wantStatus   string
		wantChannels []string
		wantFailed   []string
		expectSMS    bool
	}{
		{
			name:         "normal priority sends email only",
			priority:     PriorityNormal,
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail},
		},
		{
			name:         "high priority adds SMS",
			priority:     PriorityHigh,
			expectSMS:    true,
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail, ChannelSMS},
		},
		{
			name:         "urgent is above the threshold",
			priority:     "URGENT",
			expectSMS:    true,
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail, ChannelSMS},
		},
		{
			name:         "sms failure keeps email delivery",
			priority:     PriorityHigh,
			expectSMS:    true,
			smsErr:       errors.New("throttled"),
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail},
			wantFailed:   []string{ChannelSMS},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := new(MockEmailSender)
			sms := new(MockSMSSender)
			h, mockDB := createTestHandler(t, nil, email, sms)

			mockDB.ExpectQuery("FROM facility_owners WHERE id").
				WithArgs("own-1").
				WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("own-1", "Pat Owens", "pat@example.com", "+12065550111", true))

			email.On("SendEmail", mock.Anything, mock.MatchedBy(func(e aws.Email) bool {
				return e.Subject == "Incident reported at Maple House" &&
					strings.Contains(e.Text, "involving Ann Lee was reported at Maple House on 2026-10-13")
			})).Return("msg-3", nil)
			if tt.expectSMS {
				sms.On("SendSMS", mock.Anything, "+12065550111",
					"Incident at Maple House involving Ann Lee. Details sent by email.").
					Return("sms-1", tt.smsErr)
			}

			output, err := h.Execute(context.Background(), &Input{
				RecipientID:      "own-1",
				RecipientType:    models.RecipientFacilityOwner,
				NotificationType: models.NotificationIncidentReported,
				Priority:         tt.priority,
				Metadata:         incident,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, output.Status)
			assert.Equal(t, tt.wantChannels, output.Channels)
			assert.Equal(t, tt.wantFailed, output.FailedChannels)
			if !tt.expectSMS {
				sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
			}
			email.AssertExpectations(t)
			sms.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_ThroughSESClient(t *testing.T) {
	api := &fakeSESAPI{}
	h, mockDB := createTestHandler(t, nil, aws.NewSESClientWithAPI(api, "noreply@afh.example.com"), nil)

	mockDB.ExpectQuery("FROM staff_members WHERE id").
		WithArgs("staff-1").
		WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("staff-1", "Jo Kim", "jo@example.com", "", true))

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:      "staff-1",
		RecipientType:    models.RecipientStaff,
		NotificationType: models.NotificationFormGenerated,
		FormType:         models.FormTypeNCP,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	require.NotNil(t, api.input)
	assert.Equal(t, "noreply@afh.example.com", awssdk.ToString(api.input.Source))
	assert.Equal(t, []string{"jo@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Negotiated Care Plan ready for ", awssdk.ToString(api.input.Message.Subject.Data))
}

// ==========================
// Disabled and Failed
// ==========================

func TestHandler_Execute_Disabled(t *testing.T) {
	tests := []struct {
		name   string
		config func(c *Config)
		setup  func(m sqlmock.Sqlmock)
	}{
		{
			name: "recipient not found",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM family_contacts WHERE id").
					WithArgs("fam-1").
					WillReturnRows(sqlmock.NewRows(recipientColumns))
			},
		},
		{
			name: "recipient opted out",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM family_contacts WHERE id").
					WithArgs("fam-1").
					WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("fam-1", "Dana", "dana@example.com", "", false))
			},
		},
		{
			name:   "email channel disabled",
			config: func(c *Config) { c.EmailEnabled = false },
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM family_contacts WHERE id").
					WithArgs("fam-1").
					WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("fam-1", "Dana", "dana@example.com", "", true))
			},
		},
		{
			name: "no contact details",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM family_contacts WHERE id").
					WithArgs("fam-1").
					WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("fam-1", "Dana", "", "", true))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			if tt.config != nil {
				tt.config(config)
			}
			email := new(MockEmailSender)
			h, mockDB := createTestHandler(t, config, email, nil)
			tt.setup(mockDB)

			output, err := h.Execute(context.Background(), &Input{
				RecipientID:      "fam-1",
				RecipientType:    models.RecipientFamily,
				NotificationType: models.NotificationMatchResultsReady,
			})

			require.NoError(t, err)
			assert.Equal(t, StatusDisabled, output.Status)
			assert.Empty(t, output.Channels)
			email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
			assert.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_EmailFailure(t *testing.T) {
	email := new(MockEmailSender)
	h, mockDB := createTestHandler(t, nil, email, nil)

	mockDB.ExpectQuery("FROM family_contacts WHERE id").
		WithArgs("fam-1").
		WillReturnRows(sqlmock.NewRows(recipientColumns).AddRow("fam-1", "Dana", "dana@example.com", "", true))
	email.On("SendEmail", mock.Anything, mock.Anything).Return("", errors.New("ses: message rejected"))

	output, err := h.Execute(context.Background(), &Input{
		RecipientID:      "fam-1",
		RecipientType:    models.RecipientFamily,
		NotificationType: models.NotificationMatchResultsReady,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, output.Status)
	assert.Equal(t, []string{ChannelEmail}, output.FailedChannels)

	assert.True(t, h.shouldRetry(entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 3}}, output))
	assert.False(t, h.shouldRetry(entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 1}}, output))
	h.config.RetryFailed = false
	assert.False(t, h.shouldRetry(entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 3}}, output))
}

// ==========================
// Error Scenarios
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		setup     func(m sqlmock.Sqlmock)
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{
			name: "unknown notification type",
			input: &Input{
				RecipientID:      "fam-1",
				RecipientType:    models.RecipientFamily,
				NotificationType: "weekly_digest",
			},
			wantCode: apperrors.ErrCodeTemplateNotFound,
		},
		{
			name: "unknown recipient type",
			input: &Input{
				RecipientID:      "x-1",
				RecipientType:    "vendor",
				NotificationType: models.NotificationIncidentReported,
			},
			wantCode: apperrors.ErrCodeRecipientNotFound,
		},
		{
			name: "missing recipient id",
			input: &Input{
				RecipientType:    models.RecipientStaff,
				NotificationType: models.NotificationFormGenerated,
			},
			wantCode: apperrors.ErrCodeRecipientNotFound,
		},
		{
			name: "directory query fails",
			input: &Input{
				RecipientID:      "fam-1",
				RecipientType:    models.RecipientFamily,
				NotificationType: models.NotificationMatchResultsReady,
			},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM family_contacts WHERE id").
					WithArgs("fam-1").
					WillReturnError(errors.New("connection reset by peer"))
			},
			wantCode:  apperrors.ErrCodeQueryExecutionFailed,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mockDB := createTestHandler(t, nil, new(MockEmailSender), nil)
			if tt.setup != nil {
				tt.setup(mockDB)
			}

			output, err := h.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, output)
			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestHandler_Execute_NoDatabase(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, new(MockEmailSender), nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{
		RecipientID:      "fam-1",
		RecipientType:    models.RecipientFamily,
		NotificationType: models.NotificationMatchResultsReady,
	})

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDatabaseConnectionFailed, stdErr.Code)
}

// ==========================
// Templates
// ==========================

func TestRenderTemplate(t *testing.T) {
	data := map[string]interface{}{
		"name":     "Dana",
		"count":    float64(3),
		"facility": map[string]interface{}{"name": "Maple House"},
	}

	tests := []struct {
		tmpl string
		want string
	}{
		{"Hi {{name}}", "Hi Dana"},
		{"{{ count }} homes", "3 homes"},
		{"at {{facility.name}}", "at Maple House"},
		{"missing [{{nope}}]", "missing []"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			assert.Equal(t, tt.want, renderTemplate(tt.tmpl, data))
		})
	}
}

func TestTopMatchesText_Empty(t *testing.T) {
	assert.Contains(t, topMatchesText(nil, 3), "No homes matched yet")
}
