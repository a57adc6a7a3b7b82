package emulator

type QueryType int

const (
	QUERY_MODE QueryType = iota + 1
	QUERY_PAGE_SIZE
	QUERY_ARCH
	QUERY_TIMEOUT
)
