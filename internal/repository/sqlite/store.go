package sqlite

// Store serves records and compression config from one SQLite database.
type Store struct {
	*DB
	*RecordRepository
	*ConfigRepository
}

// Open opens dbPath and wires both repositories to it.
func Open(dbPath string) (*Store, error) {
	db, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{
		DB:               db,
		RecordRepository: NewRecordRepository(db),
		ConfigRepository: NewConfigRepository(db),
	}, nil
}
