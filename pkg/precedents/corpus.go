package precedents

// Case is a reported judgment in the sample corpus.
type Case struct {
	Title    string   `json:"title"`
	Citation string   `json:"citation"`
	Court    string   `json:"court"`
	Year     int      `json:"year"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Section is one provision of a statute.
type Section struct {
	Act     string `json:"act"`
	Section string `json:"section"`
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

var cases = []Case{
	{
		Title:    "Kesavananda Bharati v. State of Kerala",
		Citation: "(1973) 4 SCC 225",
		Court:    "Supreme Court",
		Year:     1973,
		Summary:  "Parliament may amend any part of the Constitution but cannot alter its basic structure.",
		Keywords: []string{"basic structure", "constitutional amendment", "article 368"},
	},
	{
		Title:    "Maneka Gandhi v. Union of India",
		Citation: "(1978) 1 SCC 248",
		Court:    "Supreme Court",
		Year:     1978,
		Summary:  "Procedure depriving personal liberty under Article 21 must be just, fair and reasonable; Articles 14, 19 and 21 are read together.",
		Keywords: []string{"article 21", "personal liberty", "passport", "due process"},
	},
	{
		Title:    "D.K. Basu v. State of West Bengal",
		Citation: "(1997) 1 SCC 416",
		Court:    "Supreme Court",
		Year:     1997,
		Summary:  "Guidelines binding on police for arrest and detention to prevent custodial violence.",
		Keywords: []string{"arrest", "custodial death", "detention", "article 21"},
	},
	{
		Title:    "Vishaka v. State of Rajasthan",
		Citation: "(1997) 6 SCC 241",
		Court:    "Supreme Court",
		Year:     1997,
		Summary:  "Guidelines against sexual harassment of women at the workplace pending legislation.",
		Keywords: []string{"sexual harassment", "workplace", "gender equality"},
	},
	{
		Title:    "Arnesh Kumar v. State of Bihar",
		Citation: "(2014) 8 SCC 273",
		Court:    "Supreme Court",
		Year:     2014,
		Summary:  "Police must satisfy the Section 41 CrPC checklist before arresting for offences punishable up to seven years, including Section 498A IPC.",
		Keywords: []string{"arrest", "498a", "dowry", "section 41", "bail"},
	},
	{
		Title:    "Lalita Kumari v. Government of Uttar Pradesh",
		Citation: "(2014) 2 SCC 1",
		Court:    "Supreme Court",
		Year:     2014,
		Summary:  "Registration of an FIR is mandatory under Section 154 CrPC when information discloses a cognizable offence.",
		Keywords: []string{"fir", "section 154", "cognizable offence", "police"},
	},
	{
		Title:    "Shreya Singhal v. Union of India",
		Citation: "(2015) 5 SCC 1",
		Court:    "Supreme Court",
		Year:     2015,
		Summary:  "Section 66A of the Information Technology Act struck down as violating freedom of speech.",
		Keywords: []string{"free speech", "section 66a", "information technology", "article 19"},
	},
	{
		Title:    "K.S. Puttaswamy v. Union of India",
		Citation: "(2017) 10 SCC 1",
		Court:    "Supreme Court",
		Year:     2017,
		Summary:  "Privacy is a fundamental right protected under Article 21 and Part III of the Constitution.",
		Keywords: []string{"privacy", "article 21", "aadhaar", "fundamental right"},
	},
	{
		Title:    "Navtej Singh Johar v. Union of India",
		Citation: "(2018) 10 SCC 1",
		Court:    "Supreme Court",
		Year:     2018,
		Summary:  "Section 377 IPC read down to exclude consensual sexual conduct between adults.",
		Keywords: []string{"section 377", "lgbt", "article 14", "article 21"},
	},
}

var sections = []Section{
	{Act: "IPC", Section: "302", Heading: "Punishment for murder", Text: "Whoever commits murder shall be punished with death, or imprisonment for life, and shall also be liable to fine."},
	{Act: "IPC", Section: "378", Heading: "Theft", Text: "Whoever, intending to take dishonestly any movable property out of the possession of any person without that person's consent, moves that property in order to such taking, is said to commit theft."},
	{Act: "IPC", Section: "379", Heading: "Punishment for theft", Text: "Whoever commits theft shall be punished with imprisonment of either description for a term which may extend to three years, or with fine, or with both."},
	{Act: "IPC", Section: "420", Heading: "Cheating and dishonestly inducing delivery of property", Text: "Whoever cheats and thereby dishonestly induces the person deceived to deliver any property shall be punished with imprisonment of either description for a term which may extend to seven years, and shall also be liable to fine."},
	{Act: "IPC", Section: "498A", Heading: "Husband or relative of husband of a woman subjecting her to cruelty", Text: "Whoever, being the husband or the relative of the husband of a woman, subjects such woman to cruelty shall be punished with imprisonment for a term which may extend to three years and shall also be liable to fine."},
	{Act: "CrPC", Section: "41", Heading: "When police may arrest without warrant", Text: "Any police officer may without an order from a Magistrate and without a warrant arrest any person in the circumstances listed, subject to recording reasons."},
	{Act: "CrPC", Section: "154", Heading: "Information in cognizable cases", Text: "Every information relating to the commission of a cognizable offence, if given orally to an officer in charge of a police station, shall be reduced to writing."},
	{Act: "CrPC", Section: "438", Heading: "Direction for grant of bail to person apprehending arrest", Text: "Where any person has reason to believe that he may be arrested on accusation of having committed a non-bailable offence, he may apply to the High Court or the Court of Session for a direction that he be released on bail."},
	{Act: "Constitution", Section: "14", Heading: "Equality before law", Text: "The State shall not deny to any person equality before the law or the equal protection of the laws within the territory of India."},
	{Act: "Constitution", Section: "21", Heading: "Protection of life and personal liberty", Text: "No person shall be deprived of his life or personal liberty except according to procedure established by law."},
}
