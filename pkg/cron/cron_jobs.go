package cron

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lumen_banksync/pkg/utils"
)

func StartCronJob(db *sql.DB, mailer *utils.Mailer) *cron.Cron {
	c := cron.New()

	// Runs every 6 hours — expire lapsed consents
	_, err := c.AddFunc("0 */6 * * *", func() {
		err := ExpireLapsedConsents(db)
		if err != nil {
			utils.Logger.Errorf("Cron job failed to expire lapsed consents: %v", err)
		}
	})
	if err != nil {
		utils.Logger.Errorf("Failed to schedule consent expiry job: %v", err)
	}

	// Runs daily at midnight — warn users whose consent lapses within a week
	_, err = c.AddFunc("0 0 * * *", func() {
		err := SendConsentReminders(db, mailer)
		if err != nil {
			utils.Logger.Errorf("Cron job failed to send consent reminders: %v", err)
		}
	})
	if err != nil {
		utils.Logger.Errorf("Failed to schedule consent reminder job: %v", err)
	}

	c.Start()
	utils.Logger.Info("Cron jobs started (consent expiry every 6h, reminders daily at midnight)")
	return c
}

// -------------------------------------------------------------
// Mark connected banks whose consent window has lapsed
// -------------------------------------------------------------
func ExpireLapsedConsents(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE connected_banks
		SET status = 'expired'
		WHERE consent_expires_at < ? AND status = 'active'
	`, time.Now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		tx.Rollback()
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if rowsAffected > 0 {
		utils.Logger.Infof("Marked %d bank connections as expired", rowsAffected)
	}
	return nil
}

// -------------------------------------------------------------
// Warn users whose consent lapses within the next 7 days
// -------------------------------------------------------------
func SendConsentReminders(db *sql.DB, mailer *utils.Mailer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT u.email, u.first_name, b.bank_name, b.consent_expires_at
		FROM connected_banks b
		JOIN users u ON b.user_id = u.id
		WHERE b.status = 'active'
		  AND b.consent_expires_at IS NOT NULL
		  AND b.consent_expires_at BETWEEN ? AND ?
	`, time.Now().UTC().Format("2006-01-02 15:04:05"),
		time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	defer rows.Close()

	var wg sync.WaitGroup

	for rows.Next() {
		var (
			email, firstName, bankName string
			expiresAtRaw               sql.NullString
		)

		if err := rows.Scan(&email, &firstName, &bankName, &expiresAtRaw); err != nil {
			utils.Logger.Errorf("Failed to scan reminder row: %v", err)
			continue
		}

		var expiresAt time.Time
		if expiresAtRaw.Valid {
			expiresAt, err = time.Parse("2006-01-02 15:04:05", expiresAtRaw.String)
			if err != nil {
				utils.Logger.Errorf("Failed to parse consent_expires_at for %s: %v", email, err)
				continue
			}
		} else {
			continue
		}

		wg.Add(1)
		go func(email, firstName, bankName string, expiresAt time.Time) {
			defer wg.Done()

			if err := mailer.SendConsentReminderEmail(email, firstName, bankName, expiresAt); err != nil {
				utils.Logger.Errorf("Failed to send consent reminder to %s: %v", email, err)
				return
			}

			utils.Logger.Infof("Sent consent reminder to %s for %s (expires %s)",
				email, bankName, expiresAt.Format("Jan 2, 2006"))
		}(email, firstName, bankName, expiresAt)
	}

	wg.Wait()

	if err := rows.Err(); err != nil {
		utils.Logger.Errorf("Error iterating reminder rows: %v", err)
		return err
	}

	return nil
}
