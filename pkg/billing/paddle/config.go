package paddle

import "time"

// Config holds configuration for the Paddle billing provider.
type Config struct {
	APIKey           string        `env:"PADDLE_API_KEY,required"`
	WebhookSecret    string        `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment      string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"` // production or sandbox
	WebhookTolerance time.Duration `env:"PADDLE_WEBHOOK_TOLERANCE" envDefault:"5m"`
}
