package utils

import (
	"fmt"
	"time"
)

// SendConsentReminderEmail warns a user that a bank connection's consent is
// about to lapse so they can re-link before syncs start failing.
func (m *Mailer) SendConsentReminderEmail(to, firstName, bankName string, expiresAt time.Time) error {
	subject := fmt.Sprintf("🔗 Your connection to %s expires soon", bankName)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html lang="en">
	<head>
	<meta charset="UTF-8">
	<title>Bank Connection Expiring</title>
	<style>
		body {
			font-family: 'Segoe UI', Roboto, Arial, sans-serif;
			background-color: #f6f8f7;
			margin: 0;
			padding: 0;
			color: #333;
		}
		.container {
			max-width: 480px;
			margin: 25px auto;
			background: #ffffff;
			border-radius: 12px;
			box-shadow: 0 4px 16px rgba(0, 0, 0, 0.08);
			overflow: hidden;
			border-top: 5px solid #e8a33d;
		}
		.header {
			background-color: #e8a33d;
			color: #ffffff;
			text-align: center;
			padding: 18px 12px;
		}
		.header h1 {
			margin: 0;
			font-size: 18px;
			font-weight: 600;
		}
		.content {
			padding: 20px 18px;
		}
		.message {
			font-size: 14px;
			line-height: 1.6;
			color: #444;
		}
		.footer {
			background: #f6f6f6;
			text-align: center;
			padding: 14px;
			font-size: 12px;
			color: #777;
			border-top: 1px solid #e5e5e5;
		}
		.brand {
			color: #0a4d3c;
			font-weight: bold;
		}
	</style>
	</head>

	<body>
		<div class="container">
			<div class="header">
				<h1>Bank Connection Expiring ⏳</h1>
			</div>
			<div class="content">
				<p class="message">
					Hi %s,<br><br>
					Your consent for <b>%s</b> expires on <b>%s</b>. After that date we can no
					longer fetch new transactions for the linked accounts.
				</p>
				<p class="message">
					Please log in to <b>Lumen</b> and reconnect the bank to keep your
					transaction history up to date.
				</p>
			</div>
			<div class="footer">
				&copy; %d <span class="brand">Lumen</span> — Your money, in focus.
			</div>
		</div>
	</body>
	</html>
	`, firstName, bankName, expiresAt.Format("Jan 2, 2006"), time.Now().Year())

	return m.Send(to, subject, body)
}
