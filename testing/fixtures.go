// Package testing provides test utilities and database setup for testing the campaign delivery service
package testing

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCampaign creates a campaign with one channel per given type
func (tf *TestFixtures) CreateTestCampaign(status models.CampaignStatus, channelTypes ...models.ChannelType) (*models.Campaign, error) {
	campaign := &models.Campaign{
		UUID:         uuid.New(),
		Title:        fmt.Sprintf("Exam schedule update %d", rand.Intn(10000)),
		Message:      "The updated examination schedule has been published.",
		Priority:     models.CampaignPriorityMedium,
		AudienceType: models.AudienceTypeAll,
		Status:       status,
		CreatedBy:    1,
	}
	if err := campaign.BeforeCreate(); err != nil {
		return nil, err
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	for _, ct := range channelTypes {
		channel := &models.CampaignChannel{
			UUID:        uuid.New(),
			CampaignID:  campaign.ID,
			ChannelType: ct,
			Status:      models.ChannelStatusPending,
		}
		if err := channel.BeforeCreate(); err != nil {
			return nil, err
		}
		if err := tf.DB.DB.Create(channel).Error; err != nil {
			return nil, fmt.Errorf("failed to create test channel %s: %w", ct, err)
		}
		campaign.Channels = append(campaign.Channels, *channel)
	}

	return campaign, nil
}

// CreateTestProfile creates a sender profile for a channel type
func (tf *TestFixtures) CreateTestProfile(channelType models.ChannelType, senderIdentity string, active bool) (*models.ChannelProfile, error) {
	profile := &models.ChannelProfile{
		UUID:           uuid.New(),
		ChannelType:    channelType,
		SenderIdentity: senderIdentity,
		IsActive:       active,
	}
	if err := profile.BeforeCreate(); err != nil {
		return nil, err
	}
	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create test profile: %w", err)
	}
	return profile, nil
}

// TestStudent describes one row to seed into the students table. Only the
// fields whose columns exist in the table are written.
type TestStudent struct {
	Phone              string
	EmergencyPhone     string
	FullNameAr         string
	FullName           string
	FirstName          string
	LastName           string
	Major              string
	AdmissionType      string
	Semester           int
	PaymentStatus      string
	Status             string
	RegistrationStatus string
	Password           string
}

// InsertStudent inserts a student row, writing only the columns the table was
// created with. Passwords are stored bcrypt-hashed when the column exists.
func (tf *TestFixtures) InsertStudent(columns []StudentColumn, s TestStudent) error {
	cols := []string{}
	args := []any{}

	add := func(name string, value any) {
		cols = append(cols, name)
		args = append(args, value)
	}

	for _, col := range columns {
		name := strings.Fields(string(col))[0]
		switch name {
		case "phone":
			add(name, s.Phone)
		case "emergency_contact_phone":
			add(name, s.EmergencyPhone)
		case "full_name_ar":
			add(name, s.FullNameAr)
		case "full_name":
			add(name, s.FullName)
		case "first_name":
			add(name, s.FirstName)
		case "last_name":
			add(name, s.LastName)
		case "major":
			add(name, s.Major)
		case "admission_type":
			add(name, s.AdmissionType)
		case "semester":
			add(name, s.Semester)
		case "payment_status":
			add(name, s.PaymentStatus)
		case "status":
			add(name, s.Status)
		case "registration_status":
			add(name, s.RegistrationStatus)
		case "password_hash":
			password := s.Password
			if password == "" {
				password = "TestPass123!"
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash student password: %w", err)
			}
			add(name, string(hashed))
		}
	}

	if len(cols) == 0 {
		return fmt.Errorf("no seedable columns in students table")
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO students (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if err := tf.DB.DB.Exec(stmt, args...).Error; err != nil {
		return fmt.Errorf("failed to insert test student: %w", err)
	}
	return nil
}

// InsertStudents seeds multiple student rows
func (tf *TestFixtures) InsertStudents(columns []StudentColumn, students []TestStudent) error {
	for _, s := range students {
		if err := tf.InsertStudent(columns, s); err != nil {
			return err
		}
	}
	return nil
}
