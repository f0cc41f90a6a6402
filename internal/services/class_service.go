package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/logger"
)

const (
	unknownTeacher       = "Unknown teacher"
	undefinedDepartment  = "Not defined"
	detailsListLimit     = 50
	explorePageLimit     = 100
	EventEnrollmentAdded = "enrollment.created"
)

// ClassSummary is a class row decorated for list views.
type ClassSummary struct {
	models.Class
	TeacherName    string `json:"teacher_name"`
	DepartmentName string `json:"department_name"`
	SemesterList   []int  `json:"semester_list"`
	EnrolledCount  int64  `json:"enrolled_count"`
}

// EnrollmentLists is returned after an enrollment so both class lists can be redrawn together.
type EnrollmentLists struct {
	Enrolled []ClassSummary `json:"enrolled"`
	Explore  []ClassSummary `json:"explore"`
}

// ClassDetails aggregates everything shown on a class page.
type ClassDetails struct {
	Class           models.Class          `json:"class"`
	TeacherName     string                `json:"teacher_name"`
	DepartmentName  string                `json:"department_name"`
	EnrollmentCount int64                 `json:"enrollment_count"`
	Assignments     []models.Assignment   `json:"assignments"`
	Posts           []models.Post         `json:"posts"`
	Announcements   []models.Announcement `json:"announcements"`
	Discussions     []models.ChatRoom     `json:"discussions"`
}

// ClassService manages classes, enrollments and the class detail view.
type ClassService struct {
	db     *gorm.DB
	hub    *realtime.Hub
	events *ChangePublisher
	clock  Clock
	log    *zap.Logger
}

// NewClassService constructs a ClassService. hub and events may be nil.
func NewClassService(db *gorm.DB, hub *realtime.Hub, events *ChangePublisher) (*ClassService, error) {
	if db == nil {
		return nil, errors.New("class service: db is required")
	}
	return &ClassService{
		db:     db,
		hub:    hub,
		events: events,
		clock:  systemClock,
		log:    logger.WithModule("classes"),
	}, nil
}

// Create stores a new class owned by the viewer.
func (s *ClassService) Create(ctx context.Context, viewer Viewer, in forms.ClassInput) (*models.Class, error) {
	ctx = ensureContext(ctx)
	if !viewer.IsTeacher() {
		return nil, apperrors.NewForbidden("Only teachers can create classes")
	}

	departmentID := in.DepartmentID()
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Department{}).Where("id = ?", departmentID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("class service: check department: %w", err)
	}
	if count == 0 {
		return nil, apperrors.NewBadRequest("Department not found")
	}

	class := &models.Class{
		Name:          in.Name,
		Code:          in.Code,
		Description:   in.Description,
		TeacherID:     viewer.UserID,
		DepartmentID:  &departmentID,
		Credits:       in.Credits,
		DurationHours: in.DurationHours,
		MaxStudents:   in.MaxStudents,
		Semesters:     models.EncodeInts(in.Semesters),
	}
	if err := s.db.WithContext(ctx).Create(class).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A class with this code already exists")
		}
		return nil, fmt.Errorf("class service: create class: %w", err)
	}

	return class, nil
}

// ListOwned returns the classes taught by teacherID.
func (s *ClassService) ListOwned(ctx context.Context, teacherID string) ([]ClassSummary, error) {
	ctx = ensureContext(ctx)
	var classes []models.Class
	if err := s.baseQuery(ctx).
		Where("classes.teacher_id = ?", teacherID).
		Order("classes.created_at DESC").
		Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("class service: list owned: %w", err)
	}
	return s.summarise(ctx, classes)
}

// ListEnrolled returns the classes studentID is enrolled in.
func (s *ClassService) ListEnrolled(ctx context.Context, studentID string) ([]ClassSummary, error) {
	ctx = ensureContext(ctx)
	var classes []models.Class
	if err := s.baseQuery(ctx).
		Where("classes.id IN (?)", s.enrolledSubquery(studentID)).
		Order("classes.name ASC").
		Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("class service: list enrolled: %w", err)
	}
	return s.summarise(ctx, classes)
}

// ListExplore returns active classes studentID is not enrolled in.
func (s *ClassService) ListExplore(ctx context.Context, studentID string) ([]ClassSummary, error) {
	ctx = ensureContext(ctx)
	var classes []models.Class
	if err := s.baseQuery(ctx).
		Where("classes.is_archived = ?", false).
		Where("classes.id NOT IN (?)", s.enrolledSubquery(studentID)).
		Order("classes.name ASC").
		Limit(explorePageLimit).
		Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("class service: list explore: %w", err)
	}
	return s.summarise(ctx, classes)
}

// Enroll adds the student to a class and returns both refreshed lists.
func (s *ClassService) Enroll(ctx context.Context, viewer Viewer, classID string) (*EnrollmentLists, error) {
	ctx = ensureContext(ctx)
	classID = strings.TrimSpace(classID)
	if viewer.Role != models.RoleStudent {
		return nil, apperrors.NewForbidden("Only students can enroll in classes")
	}
	if classID == "" {
		return nil, apperrors.NewBadRequest("class id is required")
	}

	var enrollment models.ClassEnrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var class models.Class
		if err := lockClassRow(tx, classID).Take(&class).Error; err != nil {
			return notFoundOr(err, "Class not found")
		}
		if class.IsArchived {
			return apperrors.NewBadRequest("Class is archived")
		}

		var existing int64
		if err := tx.Model(&models.ClassEnrollment{}).
			Where("class_id = ? AND student_id = ?", classID, viewer.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.NewConflict("Already enrolled in this class")
		}

		var enrolled int64
		if err := tx.Model(&models.ClassEnrollment{}).Where("class_id = ?", classID).Count(&enrolled).Error; err != nil {
			return err
		}
		if class.MaxStudents > 0 && enrolled >= int64(class.MaxStudents) {
			return apperrors.NewConflict("Class is full")
		}

		enrollment = models.ClassEnrollment{ClassID: classID, StudentID: viewer.UserID, EnrolledAt: s.clock()}
		if err := tx.Create(&enrollment).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("Already enrolled in this class")
			}
			return err
		}
		return joinClassRooms(tx, classID, viewer.UserID)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("class service: enroll: %w", err)
	}

	s.events.ClassChanged(ctx, classID, realtime.KindEnrollments, EventEnrollmentAdded, enrollment)

	enrolledList, err := s.ListEnrolled(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	explore, err := s.ListExplore(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	return &EnrollmentLists{Enrolled: enrolledList, Explore: explore}, nil
}

// joinClassRooms adds a new member to every open discussion room of the class.
func joinClassRooms(tx *gorm.DB, classID, userID string) error {
	var roomIDs []string
	if err := tx.Model(&models.ChatRoom{}).
		Where("class_id = ? AND is_archived = ?", classID, false).
		Pluck("id", &roomIDs).Error; err != nil {
		return err
	}
	if len(roomIDs) == 0 {
		return nil
	}

	participants := make([]models.ChatParticipant, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		participants = append(participants, models.ChatParticipant{RoomID: roomID, UserID: userID})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&participants).Error
}

// lockClassRow selects the class FOR UPDATE so concurrent enrollments count seats one at a time.
// The sqlite dialect drops the clause.
func lockClassRow(tx *gorm.DB, classID string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", classID)
}

// Details loads the full class page. A missing class yields a not-found error.
func (s *ClassService) Details(ctx context.Context, classID string) (*ClassDetails, error) {
	ctx = ensureContext(ctx)

	var class models.Class
	if err := s.baseQuery(ctx).Take(&class, "classes.id = ?", classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Class not found")
		}
		return nil, fmt.Errorf("class service: load class: %w", err)
	}

	details := &ClassDetails{
		Class:          class,
		TeacherName:    unknownTeacher,
		DepartmentName: undefinedDepartment,
		Assignments:    []models.Assignment{},
		Posts:          []models.Post{},
		Announcements:  []models.Announcement{},
		Discussions:    []models.ChatRoom{},
	}
	if class.Teacher != nil {
		details.TeacherName = class.Teacher.DisplayName()
	}
	if class.Department != nil && strings.TrimSpace(class.Department.Name) != "" {
		details.DepartmentName = class.Department.Name
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.ClassEnrollment{}).Where("class_id = ?", classID).Count(&details.EnrollmentCount).Error; err != nil {
		return nil, fmt.Errorf("class service: count enrollments: %w", err)
	}
	if err := db.Where("class_id = ? AND is_published = ?", classID, true).
		Order("due_at ASC").Limit(detailsListLimit).
		Find(&details.Assignments).Error; err != nil {
		return nil, fmt.Errorf("class service: load assignments: %w", err)
	}
	if err := db.Preload("Author").
		Where("class_id = ? AND is_deleted = ?", classID, false).
		Order("created_at DESC").Limit(detailsListLimit).
		Find(&details.Posts).Error; err != nil {
		return nil, fmt.Errorf("class service: load posts: %w", err)
	}
	if err := db.Preload("Author").
		Where("class_id = ? AND is_deleted = ?", classID, false).
		Order("created_at DESC").Limit(detailsListLimit).
		Find(&details.Announcements).Error; err != nil {
		return nil, fmt.Errorf("class service: load announcements: %w", err)
	}
	if err := db.Where("class_id = ? AND is_archived = ?", classID, false).
		Order("created_at DESC").
		Find(&details.Discussions).Error; err != nil {
		return nil, fmt.Errorf("class service: load discussions: %w", err)
	}

	return details, nil
}

// CanAccess reports whether the viewer may open the class page.
func (s *ClassService) CanAccess(ctx context.Context, viewer Viewer, classID string) (bool, error) {
	ok, err := isClassMember(ensureContext(ctx), s.db, viewer, classID)
	if err != nil {
		return false, fmt.Errorf("class service: check access: %w", err)
	}
	return ok, nil
}

// AuthorizeStream restricts class streams to class members. Other streams are open to any
// authenticated user.
func (s *ClassService) AuthorizeStream(userID, stream string) bool {
	classID, _, ok := realtime.ParseClassStream(stream)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	viewer, err := LoadViewer(ctx, s.db, userID)
	if err != nil {
		return false
	}
	allowed, err := s.CanAccess(ctx, viewer, classID)
	if err != nil {
		s.log.Warn("stream authorization failed", zap.String("stream", stream), zap.Error(err))
		return false
	}
	return allowed
}

// ClassChangeFunc receives a freshly loaded class page after any class change.
type ClassChangeFunc func(details *ClassDetails, err error)

// ClassWatch keeps the six class change subscriptions of a class page alive until closed.
type ClassWatch struct {
	mu      sync.Mutex
	cancels []func()
	closed  bool
	done    chan struct{}
}

// Close unsubscribes every stream. It is safe to call more than once.
func (w *ClassWatch) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	cancels := w.cancels
	w.cancels = nil
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	close(w.done)
}

// Done is closed once the watch has been torn down.
func (w *ClassWatch) Done() <-chan struct{} {
	return w.done
}

func (w *ClassWatch) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Watch subscribes to every class stream and re-runs Details on each change. The watch ends when
// Close is called or ctx is cancelled.
func (s *ClassService) Watch(ctx context.Context, classID string, onChange ClassChangeFunc) (*ClassWatch, error) {
	ctx = ensureContext(ctx)
	if s.hub == nil {
		return nil, errors.New("class service: realtime hub is required to watch classes")
	}
	if onChange == nil {
		return nil, errors.New("class service: change callback is required")
	}
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, apperrors.NewBadRequest("class id is required")
	}

	watch := &ClassWatch{done: make(chan struct{})}
	for _, kind := range realtime.ClassKinds {
		cancel := s.hub.Listen(realtime.ClassStream(classID, kind), func(realtime.Message) {
			if watch.isClosed() || ctx.Err() != nil {
				return
			}
			details, err := s.Details(ctx, classID)
			if watch.isClosed() {
				return
			}
			onChange(details, err)
		})
		watch.cancels = append(watch.cancels, cancel)
	}

	go func() {
		select {
		case <-ctx.Done():
			watch.Close()
		case <-watch.done:
		}
	}()

	return watch, nil
}

func (s *ClassService) baseQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Class{}).Preload("Teacher").Preload("Department")
}

func (s *ClassService) enrolledSubquery(studentID string) *gorm.DB {
	return s.db.Model(&models.ClassEnrollment{}).Select("class_id").Where("student_id = ?", studentID)
}

func (s *ClassService) summarise(ctx context.Context, classes []models.Class) ([]ClassSummary, error) {
	out := make([]ClassSummary, 0, len(classes))
	if len(classes) == 0 {
		return out, nil
	}

	ids := make([]string, len(classes))
	for i, class := range classes {
		ids[i] = class.ID
	}

	type countRow struct {
		ClassID string
		Total   int64
	}
	var rows []countRow
	if err := s.db.WithContext(ctx).Model(&models.ClassEnrollment{}).
		Select("class_id, COUNT(*) AS total").
		Where("class_id IN ?", ids).
		Group("class_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("class service: count enrollments: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ClassID] = row.Total
	}

	for _, class := range classes {
		summary := ClassSummary{
			Class:          class,
			TeacherName:    unknownTeacher,
			DepartmentName: undefinedDepartment,
			SemesterList:   models.DecodeInts(class.Semesters),
			EnrolledCount:  counts[class.ID],
		}
		if class.Teacher != nil {
			summary.TeacherName = class.Teacher.DisplayName()
		}
		if class.Department != nil {
			summary.DepartmentName = class.Department.Name
		}
		out = append(out, summary)
	}
	return out, nil
}
