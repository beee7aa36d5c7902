package domain

// DigestPageSize is the maximum number of records per digest page
const DigestPageSize = 25

// DigestPage is one page of the daily digest
type DigestPage struct {
	Number  int // 1-based
	Total   int
	Count   int // records across all pages
	Records []ProductRecord
}

// Paginate splits records into pages of at most size records.
// It returns nil for no records.
func Paginate(records []ProductRecord, size int) []DigestPage {
	if len(records) == 0 {
		return nil
	}
	if size <= 0 {
		size = DigestPageSize
	}
	total := (len(records) + size - 1) / size
	pages := make([]DigestPage, 0, total)
	for i := 0; i < total; i++ {
		end := (i + 1) * size
		if end > len(records) {
			end = len(records)
		}
		pages = append(pages, DigestPage{
			Number:  i + 1,
			Total:   total,
			Count:   len(records),
			Records: records[i*size : end],
		})
	}
	return pages
}
