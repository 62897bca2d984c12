package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrAudienceNotResolvable wraps any query failure during audience resolution.
// Callers get this single error instead of partial results.
var ErrAudienceNotResolvable = errors.New("failed to resolve recipients")

// capabilitiesCacheTTL bounds how long a probed schema is trusted before the
// next process start re-probes. Explicit invalidation clears it earlier.
const capabilitiesCacheTTL = 24 * time.Hour

// StudentDirectoryRepositoryImpl resolves audiences against the students
// table. The table is owned by the registration system and its schema varies
// by deployment, so available columns are probed once and cached.
type StudentDirectoryRepositoryImpl struct {
	DB    *gorm.DB
	Redis *redis.Client

	mu     sync.RWMutex
	cached *models.DirectoryCapabilities
}

// NewStudentDirectoryRepository creates a new student directory repository
func NewStudentDirectoryRepository(db *gorm.DB, redisClient *redis.Client) StudentDirectoryRepository {
	return &StudentDirectoryRepositoryImpl{
		DB:    db,
		Redis: redisClient,
	}
}

func (r *StudentDirectoryRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB
}

// Capabilities returns which optional students columns exist. The probe runs
// once per process; the result is kept in memory and mirrored to redis so
// sibling instances skip the probe too.
func (r *StudentDirectoryRepositoryImpl) Capabilities(ctx context.Context) (*models.DirectoryCapabilities, error) {
	r.mu.RLock()
	if r.cached != nil {
		caps := *r.cached
		r.mu.RUnlock()
		return &caps, nil
	}
	r.mu.RUnlock()

	if r.Redis != nil {
		if raw, err := r.Redis.Get(ctx, utils.DirectoryCapabilitiesCacheKey).Result(); err == nil {
			var caps models.DirectoryCapabilities
			if err := json.Unmarshal([]byte(raw), &caps); err == nil {
				r.mu.Lock()
				r.cached = &caps
				r.mu.Unlock()
				return &caps, nil
			}
		}
	}

	caps, err := r.probeCapabilities(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cached = caps
	r.mu.Unlock()

	if r.Redis != nil {
		if raw, err := json.Marshal(caps); err == nil {
			r.Redis.Set(ctx, utils.DirectoryCapabilitiesCacheKey, raw, capabilitiesCacheTTL)
		}
	}

	return caps, nil
}

// InvalidateCapabilities drops the cached schema descriptor so the next call
// re-probes. Call after migrating the students table.
func (r *StudentDirectoryRepositoryImpl) InvalidateCapabilities(ctx context.Context) error {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()

	if r.Redis != nil {
		if err := r.Redis.Del(ctx, utils.DirectoryCapabilitiesCacheKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to invalidate capabilities cache: %w", err)
		}
	}

	return nil
}

func (r *StudentDirectoryRepositoryImpl) probeCapabilities(ctx context.Context) (*models.DirectoryCapabilities, error) {
	db := r.getDB(ctx)

	var columns []string
	err := db.WithContext(ctx).Raw(
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = 'students'`,
	).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to probe students table columns: %w", err)
	}

	caps := &models.DirectoryCapabilities{}
	for _, col := range columns {
		switch strings.ToLower(col) {
		case "phone":
			caps.HasPhone = true
		case "emergency_contact_phone":
			caps.HasEmergencyPhone = true
		case "full_name_ar":
			caps.HasFullNameAr = true
		case "full_name":
			caps.HasFullName = true
		case "first_name":
			caps.HasFirstName = true
		case "last_name":
			caps.HasLastName = true
		case "major":
			caps.HasMajor = true
		case "admission_type":
			caps.HasAdmissionType = true
		case "semester":
			caps.HasSemester = true
		case "payment_status":
			caps.HasPaymentStatus = true
		case "status":
			caps.HasStatus = true
		case "registration_status":
			caps.HasRegistrationStatus = true
		}
	}

	return caps, nil
}

// phoneExpr builds the SQL expression yielding the best available phone for a
// student. The personal phone wins; the emergency contact is the fallback.
// Returns empty when the table carries no phone column at all.
func phoneExpr(caps *models.DirectoryCapabilities) string {
	parts := make([]string, 0, 2)
	if caps.HasPhone {
		parts = append(parts, "NULLIF(TRIM(phone), '')")
	}
	if caps.HasEmergencyPhone {
		parts = append(parts, "NULLIF(TRIM(emergency_contact_phone), '')")
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("COALESCE(%s, '')", strings.Join(parts, ", "))
}

// nameExpr builds the SQL expression yielding the best available display name.
// Arabic full name wins, then the latin full name, then first+last.
func nameExpr(caps *models.DirectoryCapabilities) string {
	parts := make([]string, 0, 3)
	if caps.HasFullNameAr {
		parts = append(parts, "NULLIF(TRIM(full_name_ar), '')")
	}
	if caps.HasFullName {
		parts = append(parts, "NULLIF(TRIM(full_name), '')")
	}
	if caps.HasFirstName && caps.HasLastName {
		parts = append(parts, "NULLIF(TRIM(CONCAT(first_name, ' ', last_name)), '')")
	} else if caps.HasFirstName {
		parts = append(parts, "NULLIF(TRIM(first_name), '')")
	} else if caps.HasLastName {
		parts = append(parts, "NULLIF(TRIM(last_name), '')")
	}
	if len(parts) == 0 {
		return "?"
	}
	return fmt.Sprintf("COALESCE(%s, ?)", strings.Join(parts, ", "))
}

type directoryRow struct {
	ID    string  `gorm:"column:id"`
	Name  string  `gorm:"column:name"`
	Phone string  `gorm:"column:phone"`
	Major *string `gorm:"column:major"`
}

// ResolveAudience fetches the contactable students matching the audience
// definition, ordered by name, deduplicated by normalized phone, capped at
// limit. Missing optional columns degrade to an empty result, never an error.
// Custom audiences carry their own recipient list and never reach the
// directory.
func (r *StudentDirectoryRepositoryImpl) ResolveAudience(ctx context.Context, audienceType models.AudienceType, filters models.AudienceFilters, departmentAliases map[string]string, limit int) ([]models.Recipient, error) {
	if audienceType == models.AudienceTypeCustom {
		return nil, fmt.Errorf("custom audiences are not resolved against the directory")
	}

	caps, err := r.Capabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudienceNotResolvable, err)
	}

	phone := phoneExpr(caps)
	if phone == "" {
		// No phone column means nobody is contactable.
		return []models.Recipient{}, nil
	}

	selectCols := []string{
		"id::text AS id",
		fmt.Sprintf("%s AS name", nameExpr(caps)),
		fmt.Sprintf("%s AS phone", phone),
	}
	if caps.HasMajor {
		selectCols = append(selectCols, "major")
	} else {
		selectCols = append(selectCols, "NULL AS major")
	}

	args := []interface{}{utils.UnnamedRecipientPlaceholder}
	conditions := []string{fmt.Sprintf("%s <> ''", phone)}

	switch audienceType {
	case models.AudienceTypeAll:
		// No extra conditions.
	case models.AudienceTypeDepartment:
		if !caps.HasMajor {
			return []models.Recipient{}, nil
		}
		// Department matching happens in Go after sanitization; semester
		// narrows in SQL when the column exists.
		if filters.Semester != nil && caps.HasSemester {
			conditions = append(conditions, "semester::text = ?")
			args = append(args, *filters.Semester)
		}
	case models.AudienceTypeNewStudents:
		signals := make([]string, 0, 3)
		if caps.HasPaymentStatus {
			signals = append(signals, "payment_status = 'registration_pending'")
		}
		if caps.HasStatus {
			signals = append(signals, "status = 'registration_pending'")
		}
		if caps.HasRegistrationStatus {
			signals = append(signals, "registration_status = 'pending'")
		}
		if len(signals) == 0 {
			return []models.Recipient{}, nil
		}
		conditions = append(conditions, "("+strings.Join(signals, " OR ")+")")
	default:
		return nil, fmt.Errorf("unsupported audience type %s", audienceType)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM students WHERE %s ORDER BY name ASC NULLS LAST",
		strings.Join(selectCols, ", "),
		strings.Join(conditions, " AND "),
	)

	db := r.getDB(ctx)
	var rows []directoryRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudienceNotResolvable, err)
	}

	wanted := departmentMatcher(audienceType, filters, departmentAliases)

	recipients := make([]models.Recipient, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if wanted != nil && !wanted(row.Major) {
			continue
		}
		normalized := utils.NormalizePhone(row.Phone)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		recipients = append(recipients, models.Recipient{
			ID:         row.ID,
			Name:       row.Name,
			Phone:      row.Phone,
			Department: row.Major,
		})
		if limit > 0 && len(recipients) >= limit {
			break
		}
	}

	return recipients, nil
}

// departmentMatcher returns a predicate accepting students whose sanitized
// major matches one of the requested departments, after applying the
// configured alias map. Nil means no department filtering.
func departmentMatcher(audienceType models.AudienceType, filters models.AudienceFilters, aliases map[string]string) func(*string) bool {
	if audienceType != models.AudienceTypeDepartment || len(filters.Departments) == 0 {
		return nil
	}

	wanted := make(map[string]struct{}, len(filters.Departments))
	for _, dept := range filters.Departments {
		key := utils.SanitizeIdentifier(dept)
		if alias, ok := aliases[key]; ok {
			key = utils.SanitizeIdentifier(alias)
		}
		if key != "" {
			wanted[key] = struct{}{}
		}
	}

	return func(major *string) bool {
		if major == nil {
			return false
		}
		key := utils.SanitizeIdentifier(*major)
		if alias, ok := aliases[key]; ok {
			key = utils.SanitizeIdentifier(alias)
		}
		_, ok := wanted[key]
		return ok
	}
}
