package roster

// Record is a character profile as seen by callers of the roster store.
// ID is assigned by storage; any value set before Create is ignored.
type Record struct {
	ID            int64
	Owner         string
	Level         int
	Role          string
	CharacterName string
	Race          *string
	Alignment     *string
}

// OptionalString returns a pointer suitable for the nullable Race and Alignment fields.
func OptionalString(value string) *string {
	return &value
}

// characterRow is the persisted shape of a Record in the user table.
type characterRow struct {
	ID        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Player    string  `gorm:"column:player;type:varchar(20);not null"`
	Level     int     `gorm:"column:level;not null"`
	Role      string  `gorm:"column:role;type:character(10);not null"`
	Character string  `gorm:"column:character;type:varchar(20);not null"`
	Race      *string `gorm:"column:race;type:varchar(20)"`
	Alignment *string `gorm:"column:alignment;type:varchar(20)"`
}

// TableName pins the table the rows are stored in.
func (characterRow) TableName() string {
	return tableName
}

func newCharacterRow(record Record) characterRow {
	return characterRow{
		Player:    record.Owner,
		Level:     record.Level,
		Role:      record.Role,
		Character: record.CharacterName,
		Race:      copyString(record.Race),
		Alignment: copyString(record.Alignment),
	}
}

func (r characterRow) toRecord() Record {
	return Record{
		ID:            r.ID,
		Owner:         r.Player,
		Level:         r.Level,
		Role:          r.Role,
		CharacterName: r.Character,
		Race:          copyString(r.Race),
		Alignment:     copyString(r.Alignment),
	}
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
