package config

// Constants defining default values for application configuration
const (
	DefaultDBPath        = "./journal.db"
	DefaultStatePath     = "./crawler_config.json"
	DefaultIssuesCSVPath = "./issues.csv"

	// Base endpoint of the scraped journal; the article id goes in the
	// "number" query parameter.
	JournalBaseURL = "https://kjcn.or.kr/journal/view.php"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultCrawlCount = 10 // Articles per manual crawl when unspecified
	DefaultCronSpec   = "" // Empty means one-shot crawl

	DefaultLogLevel = "debug"
)
