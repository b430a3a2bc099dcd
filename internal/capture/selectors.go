package capture

// X.com DOM selectors. X changes its markup often; update these when
// captures start timing out.
const (
	PrimaryColumn = `div[data-testid="primaryColumn"]`
	TweetArticle  = `article[data-testid="tweet"]`

	// FirstArticle is the fallback locator: the first tweet of the primary
	// column, which on a status page is the focused tweet.
	FirstArticle = PrimaryColumn + ` ` + TweetArticle
)
