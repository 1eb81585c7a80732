package roster

// SampleParty returns the demonstration characters inserted by Seed.
func SampleParty() []Record {
	return []Record{
		{Owner: "David", Level: 1, Role: "Wizard", CharacterName: "Character1", Race: OptionalString("Elf"), Alignment: OptionalString("Chaotic Good")},
		{Owner: "David", Level: 5, Role: "Fighter", CharacterName: "Character2", Race: OptionalString("Human"), Alignment: OptionalString("Lawful Neutral")},
		{Owner: "Ryan", Level: 3, Role: "Rogue", CharacterName: "Character3", Race: OptionalString("Gnome"), Alignment: OptionalString("Chaotic Evil")},
		{Owner: "Taylor", Level: 2, Role: "Cleric", CharacterName: "Character4", Race: OptionalString("Dwarf"), Alignment: OptionalString("Lawful Good")},
	}
}
