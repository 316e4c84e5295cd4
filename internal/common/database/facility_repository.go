// internal/common/database/facility_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"
	"afh-workers/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// ErrFacilityNotFound is returned when no facility row matches the id.
var ErrFacilityNotFound = errors.New("facility not found")

// FacilityColumns is the select list understood by ScanFacility.
const FacilityColumns = `id, name, license_number, description, capacity, available_beds,
	price_min, price_max, accepts_medicaid, accepts_ltc_insurance,
	specialties, medical_services, daily_services, amenities,
	address, city, zip, latitude, longitude, rating, updated_at`

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanFacility reads one row selected with FacilityColumns.
func ScanFacility(row RowScanner) (models.Facility, error) {
	var (
		f                    models.Facility
		description, address sql.NullString
		rating               sql.NullFloat64
		lat, lng             sql.NullFloat64
		specialties, medical pq.StringArray
		daily, amenities     pq.StringArray
		priceMin, priceMax   sql.NullInt64
	)

	err := row.Scan(
		&f.ID, &f.Name, &f.LicenseNumber, &description, &f.Capacity, &f.AvailableBeds,
		&priceMin, &priceMax, &f.AcceptsMedicaid, &f.AcceptsLTCInsurance,
		&specialties, &medical, &daily, &amenities,
		&address, &f.Location.City, &f.Location.Zip, &lat, &lng, &rating, &f.UpdatedAt,
	)
	if err != nil {
		return models.Facility{}, err
	}

	f.Description = description.String
	f.Location.Address = address.String
	f.PriceMin = int(priceMin.Int64)
	f.PriceMax = int(priceMax.Int64)
	f.Rating = rating.Float64
	f.Specialties = nonNil(specialties)
	f.MedicalServices = nonNil(medical)
	f.DailyServices = nonNil(daily)
	f.Amenities = nonNil(amenities)
	if lat.Valid && lng.Valid {
		la, lo := lat.Float64, lng.Float64
		f.Location.Latitude = &la
		f.Location.Longitude = &lo
	}
	return f, nil
}

func nonNil(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}

// FacilityRepository loads facilities from PostgreSQL through a Redis
// read-through cache. The cache is optional.
type FacilityRepository struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewFacilityRepository wires the repository. cache may be nil.
func NewFacilityRepository(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *FacilityRepository {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &FacilityRepository{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "facility-repository"}),
	}
}

// FacilityCacheKey is the Redis key holding one facility.
func FacilityCacheKey(id string) string {
	return "facility:" + id
}

// Get returns one facility. A missing row yields ErrFacilityNotFound.
func (r *FacilityRepository) Get(ctx context.Context, id string) (*models.Facility, error) {
	if f, ok := r.fromCache(ctx, id); ok {
		return f, nil
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+FacilityColumns+` FROM facilities WHERE id = $1`, id)
	f, err := ScanFacility(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load facility %s: %w", id, err)
	}

	r.toCache(ctx, f)
	return &f, nil
}

// GetMany returns the facilities found for ids in the order given, plus the
// ids that matched no row.
func (r *FacilityRepository) GetMany(ctx context.Context, ids []string) ([]models.Facility, []string, error) {
	found := make(map[string]models.Facility, len(ids))
	var pending []string
	for _, id := range ids {
		if _, seen := found[id]; seen {
			continue
		}
		if f, ok := r.fromCache(ctx, id); ok {
			found[id] = *f
			continue
		}
		pending = append(pending, id)
	}

	if len(pending) > 0 {
		rows, err := r.db.QueryContext(ctx,
			`SELECT `+FacilityColumns+` FROM facilities WHERE id = ANY($1)`, pq.Array(pending))
		if err != nil {
			return nil, nil, fmt.Errorf("load facilities: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			f, err := ScanFacility(rows)
			if err != nil {
				return nil, nil, fmt.Errorf("scan facility: %w", err)
			}
			found[f.ID] = f
			r.toCache(ctx, f)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, fmt.Errorf("iterate facilities: %w", err)
		}
	}

	out := make([]models.Facility, 0, len(found))
	var missing []string
	emitted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if emitted[id] {
			continue
		}
		emitted[id] = true
		if f, ok := found[id]; ok {
			out = append(out, f)
		} else {
			missing = append(missing, id)
		}
	}
	return out, missing, nil
}

func (r *FacilityRepository) fromCache(ctx context.Context, id string) (*models.Facility, bool) {
	if r.cache == nil {
		return nil, false
	}
	var f models.Facility
	ok, err := GetJSON(ctx, r.cache, FacilityCacheKey(id), &f)
	if err != nil {
		r.logger.Warn("facility cache read failed", map[string]interface{}{"facilityId": id, "error": err.Error()})
	}
	if !ok {
		metrics.FacilityCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.FacilityCacheLookups.WithLabelValues("hit").Inc()
	return &f, true
}

func (r *FacilityRepository) toCache(ctx context.Context, f models.Facility) {
	if err := SetJSON(ctx, r.cache, FacilityCacheKey(f.ID), f, r.ttl); err != nil {
		r.logger.Warn("facility cache write failed", map[string]interface{}{"facilityId": f.ID, "error": err.Error()})
	}
}
