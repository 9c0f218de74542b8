// internal/domain/campaign/shared_types.go
package campaign

// CampaignType identifies a recurring email campaign a user is enrolled in.
type CampaignType string

const (
	CampaignTypeWelcome        CampaignType = "welcome"
	CampaignTypeWeeklyCoaching CampaignType = "weekly_coaching"
)

// TotalWeeks is the length of the weekly coaching campaign.
const TotalWeeks = 12

// HistoryWindow is how many recent tags each rotation-history field keeps.
const HistoryWindow = 4

// QuoteSource is the category of person a weekly quote is drawn from.
type QuoteSource string

const (
	QuoteSourceBusinessLeaders       QuoteSource = "business_leaders"
	QuoteSourceScientistsResearchers QuoteSource = "scientists_researchers"
	QuoteSourceHistoricalFigures     QuoteSource = "historical_figures"
	QuoteSourceMoviesTV              QuoteSource = "movies_tv"
)

// quoteSchedule rotates every four weeks and restarts after sixteen.
var quoteSchedule = [...]QuoteSource{
	QuoteSourceBusinessLeaders,
	QuoteSourceScientistsResearchers,
	QuoteSourceHistoricalFigures,
	QuoteSourceMoviesTV,
}

// QuoteSourceForWeek returns the quote category for a 1-indexed week number.
// Weeks 1-4 map to business leaders, 5-8 to scientists, 9-12 to historical
// figures, 13-16 to movies and TV, then the cycle repeats.
func QuoteSourceForWeek(weekNumber int) QuoteSource {
	if weekNumber < 1 {
		weekNumber = 1
	}
	bucket := ((weekNumber - 1) / 4) % len(quoteSchedule)
	return quoteSchedule[bucket]
}

// DeliveryStatus is the outcome recorded in the email log.
type DeliveryStatus string

const (
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
	DeliveryStatusSkipped DeliveryStatus = "skipped"
)
