package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"examseat/internal/database"
	"examseat/internal/domain"
)

// Dev-only seeding: a week of sessions per exam type plus a few students with
// known credit balances.
func main() {
	_ = godotenv.Load()

	db, err := database.Connect("examseat.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM exam_sessions")
	db.Exec("DELETE FROM credit_ledgers")

	// ================== SESSIONS ==================
	log.Println("Creating sessions...")

	examTypes := []string{
		domain.ExamTypeJudgment,
		domain.ExamTypeSkills,
		domain.ExamTypeMini,
		domain.ExamTypeDiscussion,
	}

	var created int
	for day := 1; day <= 7; day++ {
		date := time.Now().UTC().AddDate(0, 0, day).Format("2006-01-02")
		for _, examType := range examTypes {
			sess := domain.ExamSession{
				ExternalID: fmt.Sprintf("%s-%s", examType, date),
				ExamType:   examType,
				Date:       date,
				StartTime:  "10:00",
				EndTime:    "12:00",
				Location:   "Main hall",
				Capacity:   20,
				Active:     true,
			}
			if err := db.Create(&sess).Error; err != nil {
				log.Fatal("session create failed:", err)
			}
			created++
		}
	}
	log.Printf("Created %d sessions", created)

	// ================== LEDGERS ==================
	log.Println("Creating credit ledgers...")

	ledgers := []domain.CreditLedger{
		{
			StudentID:       "ST-1001",
			ContactRef:      "st1001@example.com",
			JudgmentCredits: 2,
			SkillsCredits:   1,
			SharedCredits:   1,
			Primed:          true,
		},
		{
			StudentID:         "ST-1002",
			ContactRef:        "st1002@example.com",
			MiniCredits:       3,
			DiscussionCredits: 1,
			Primed:            true,
		},
		{
			// No specific credits; only the shared pool.
			StudentID:     "ST-1003",
			ContactRef:    "st1003@example.com",
			SharedCredits: 2,
			Primed:        true,
		},
	}
	for i := range ledgers {
		if err := db.Create(&ledgers[i]).Error; err != nil {
			log.Fatal("ledger create failed:", err)
		}
	}
	log.Printf("Created %d ledgers", len(ledgers))

	log.Println("Seed completed")
}
