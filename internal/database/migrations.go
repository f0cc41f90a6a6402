package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Campus{},
		&models.Department{},
		&models.User{},
		&models.StudentProfile{},
		&models.TeacherProfile{},
		&models.Session{},
		&models.Class{},
		&models.ClassEnrollment{},
		&models.Announcement{},
		&models.Assignment{},
		&models.AssignmentSubmission{},
		&models.Post{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.Document{},
		&models.NotificationRead{},
		&models.CacheEntry{},
	)
}

// DefaultCampusID identifies the campus created on first start.
const DefaultCampusID = "00000000-0000-4000-8000-000000000001"

// SeedData populates the default campus and its departments.
func SeedData(db *gorm.DB) error {
	campus := models.Campus{
		BaseModel: models.BaseModel{ID: DefaultCampusID},
		Name:      "Main Campus",
		Timezone:  "UTC",
		IsActive:  true,
	}
	if err := db.Where(models.Campus{BaseModel: models.BaseModel{ID: campus.ID}}).Attrs(campus).FirstOrCreate(&models.Campus{}).Error; err != nil {
		return err
	}

	campusID := campus.ID
	departments := []models.Department{
		{CampusID: &campusID, Code: "CS", Name: "Computer Science"},
		{CampusID: &campusID, Code: "MATH", Name: "Mathematics"},
		{CampusID: &campusID, Code: "LANG", Name: "Languages and Literature"},
	}

	for _, department := range departments {
		if err := db.Where(models.Department{Code: department.Code}).Attrs(department).FirstOrCreate(&models.Department{}).Error; err != nil {
			return err
		}
	}

	return nil
}
