package docwhere

const (
	DefaultLocale   = "en"
	DefaultLimit    = 100
	DefaultMaxDepth = 32
)
