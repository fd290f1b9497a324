// RecordFilter narrows the admin record list.
package dto

type RecordFilter struct {
	Query  string // case-insensitive substring of the result text
	Date   string // calendar day, YYYY-MM-DD
	Limit  int
	Offset int
}
