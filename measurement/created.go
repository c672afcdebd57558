package measurement

import "time"

const (
	createdField = "created"
	tzField      = "tz"

	createdDateLayout = "2006-01-02"
)

// CreatedDate stamps the ping with the local calendar date it was built on.
type CreatedDate struct{}

func NewCreatedDate() *CreatedDate {
	return &CreatedDate{}
}

func (*CreatedDate) Field() string {
	return createdField
}

func (*CreatedDate) Flush() (any, error) {
	return time.Now().Format(createdDateLayout), nil
}

// CreatedTimestamp stamps the ping with the millisecond epoch time it was
// built at.
type CreatedTimestamp struct{}

func NewCreatedTimestamp() *CreatedTimestamp {
	return &CreatedTimestamp{}
}

func (*CreatedTimestamp) Field() string {
	return createdField
}

func (*CreatedTimestamp) Flush() (any, error) {
	return time.Now().UnixMilli(), nil
}

// TimezoneOffset reports the local offset from UTC in minutes at build time.
type TimezoneOffset struct{}

func NewTimezoneOffset() *TimezoneOffset {
	return &TimezoneOffset{}
}

func (*TimezoneOffset) Field() string {
	return tzField
}

func (*TimezoneOffset) Flush() (any, error) {
	_, offsetSeconds := time.Now().Zone()

	return offsetSeconds / 60, nil
}
