package main

var (
	ContactHeading = `Let's Connect`

	ContactIntro = `Drop me a message to collaborate or discuss tech and design. I'm excited to connect!`

	ContactSuccess = `Message sent successfully!`

	// The fallback address is appended by the template.
	ContactFailure = `Failed to send message. Please try again, or email me directly at`

	PrivacySummary = `This site records page visits with a salted hash of your IP address instead of the address itself,
	honours Do Not Track, and deletes visit records after 12 months. Contact form messages are relayed by e-mail
	and never stored on this server; only whether a send succeeded is logged.`
)
