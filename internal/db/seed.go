package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoUsers resets the database and populates demo users with images.
//
// Behavior:
//  1. Clears all engine tables.
//  2. Creates 20 users (10 male, 10 female) with hashed passwords and a
//     main profile image each.
//
// Likes, matches, messages and visits are driven through the engine by
// cmd/seed so that the demo data satisfies the same invariants production
// traffic would.
func SeedDemoUsers(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{
		"notifications", "messages", "conversations", "matches",
		"visits", "likes", "image_likes", "images", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range tables {
			db.Exec(fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = 1", table))
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}

	log.Println("Cleared existing data")

	interests := []string{"hiking", "cooking", "jazz", "cinema", "climbing", "photography"}

	for i := 1; i <= 20; i++ {
		username := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@example.com", i)

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := "male"
		if i > 10 {
			gender = "female"
		}

		user := User{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			Gender:       gender,
			SexualPref:   "bisexual",
			Bio:          fmt.Sprintf("demo user %d", i),
			Interests:    interests[r.Intn(len(interests))] + "," + interests[r.Intn(len(interests))],
			City:         "Lisbon",
			Country:      "PT",
			FameRate:     r.Intn(100),
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		img := Image{
			UserID: user.ID,
			URL:    fmt.Sprintf("https://cdn.example.com/profiles/%d/main.jpg", user.ID),
			IsMain: true,
		}
		if err := db.Create(&img).Error; err != nil {
			return fmt.Errorf("failed to seed image: %w", err)
		}
	}
	log.Println("Seeded 20 users with profile images.")

	return nil
}
