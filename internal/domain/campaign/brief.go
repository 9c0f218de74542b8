package campaign

// PlaceholderMemberName stands in for the featured team member when a roster is empty.
const PlaceholderMemberName = "Team Member"

// ContentBrief is the engine's selection for one week. It is never persisted.
type ContentBrief struct {
	UserID                  string
	WeekNumber              int
	ManagerName             string
	TopStrengths            []string
	FeaturedStrength        string
	TeamSize                int
	FeaturedMember          string
	FeaturedMemberStrengths []string
	FeaturedMemberStrength  string
	QuoteSource             QuoteSource
	History                 History // Last HistoryWindow entries of each field
}
