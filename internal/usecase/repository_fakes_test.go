package usecase

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errDatabaseDown = errors.New("database is down")

// setupMockDB returns a gorm handle whose transactions are scripted through mock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func setupCapacity(t *testing.T) (*service.SlotCapacityService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return service.NewSlotCapacityService(client, testLogger()), mr
}

func boolPtr(b bool) *bool { return &b }

type fakeHospitalRepo struct {
	hospitals map[uuid.UUID]entity.Hospital
}

func (r *fakeHospitalRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Hospital, error) {
	h, ok := r.hospitals[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]entity.DoctorProfile
}

func (r *fakeDoctorRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.DoctorProfile, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *fakeDoctorRepo) FindActiveByHospital(db *gorm.DB, hospitalID uuid.UUID, filter *entity.DoctorFilter) ([]entity.DoctorProfile, error) {
	var out []entity.DoctorProfile
	for _, d := range r.doctors {
		if d.HospitalID != hospitalID || !d.Active() {
			continue
		}
		if filter != nil && filter.Name != "" && !strings.Contains(strings.ToLower(d.FullName), strings.ToLower(filter.Name)) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type fakeScheduleRepo struct {
	schedules []entity.DoctorSchedule
	nextID    int
}

func (r *fakeScheduleRepo) Create(db *gorm.DB, schedule *entity.DoctorSchedule) error {
	r.nextID++
	schedule.ID = r.nextID
	r.schedules = append(r.schedules, *schedule)
	return nil
}

func (r *fakeScheduleRepo) FindByID(db *gorm.DB, id int) (*entity.DoctorSchedule, error) {
	for i := range r.schedules {
		if r.schedules[i].ID == id {
			s := r.schedules[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (r *fakeScheduleRepo) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorSchedule, error) {
	var out []entity.DoctorSchedule
	for _, s := range r.schedules {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) FindByDoctorAndDays(db *gorm.DB, doctorID uuid.UUID, days ...time.Weekday) ([]entity.DoctorSchedule, error) {
	var out []entity.DoctorSchedule
	for _, s := range r.schedules {
		if s.DoctorID != doctorID {
			continue
		}
		for _, d := range days {
			if s.DayOfWeek == d {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Delete(db *gorm.DB, id int) (int64, error) {
	for i := range r.schedules {
		if r.schedules[i].ID == id {
			r.schedules = append(r.schedules[:i], r.schedules[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments []entity.Appointment
	createErr    error
}

func (r *fakeAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	r.appointments = append(r.appointments, *appointment)
	return nil
}

func (r *fakeAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appointments {
		if r.appointments[i].ID == id {
			a := r.appointments[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) CancelAppointment(db *gorm.DB, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appointments {
		if r.appointments[i].ID == id && !r.appointments[i].IsCancelled() {
			r.appointments[i].Cancel()
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeAppointmentRepo) FindActiveByMobileAndSlot(db *gorm.DB, mobile string, slot entity.SlotKey) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appointments {
		a := r.appointments[i]
		if a.Mobile == mobile && a.SlotKey() == slot && !a.IsCancelled() {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) CountActiveBySlot(db *gorm.DB, slot entity.SlotKey) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.appointments {
		if r.appointments[i].SlotKey() == slot && !r.appointments[i].IsCancelled() {
			n++
		}
	}
	return n, nil
}

func (r *fakeAppointmentRepo) CountActiveByDoctorAndDates(db *gorm.DB, doctorID uuid.UUID, dates ...string) (map[entity.SlotKey]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[entity.SlotKey]int)
	for i := range r.appointments {
		key := r.appointments[i].SlotKey()
		if key.DoctorID != doctorID || r.appointments[i].IsCancelled() {
			continue
		}
		for _, d := range dates {
			if key.Date == d {
				counts[key]++
			}
		}
	}
	return counts, nil
}

type fakeAuditLogRepo struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

func (r *fakeAuditLogRepo) Create(db *gorm.DB, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeAuditLogRepo) FindPage(db *gorm.DB, action string, limit, offset int) ([]entity.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []entity.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if action == "" || r.logs[i].Action == action {
			matched = append(matched, r.logs[i])
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []entity.AuditLog{}, total, nil
	}
	return matched[offset:min(offset+limit, len(matched))], total, nil
}

func (r *fakeAuditLogRepo) FindByID(db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID == id {
			l := r.logs[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (r *fakeAuditLogRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}
