package descriptions

// Tool descriptions for the drill library MCP tools, with usage examples

const (
	LibraryListSessionsDescription = `List every training session in the drill library.

**When to use:** First look at the library, or to find the session number of a training unit before fetching it.

**Examples:**
• "Which sessions are in the library?"
• "Find the session about Tempogegenstoß"

**Output:** One line per session: TE number, title, total minutes, drill count and image count.

**Best practices:** Use the TE number from this list with library_get_session.`

	LibraryGetSessionDescription = `Get one training session with all drills as JSON.

**When to use:** Need the drills of a session: titles, minutes, cumulative minutes, phase, source page and image paths.

**Examples:**
• "Show the drills of TE 78"
• "Which warm-up does session 184 use?"

**Parameters:** id is the session number parsed from the PDF file name, e.g. 78 for "TE 78.pdf".

**Best practices:** Drill text fields are empty by design; the drill's source_page_start and images point at the page that holds the full description.`

	LibraryStatsDescription = `Count sessions, drills and image references in the drill library.

**When to use:** Checking the library before a release, or comparing against the stats of the release manifest.

**Examples:**
• "How many drills does the library have?"`

	LibraryExtractPDFDescription = `Extract a training session from a handball training PDF.

**When to use:** A new training PDF was added and should become part of the library.

**Examples:**
• "Extract TE 192.pdf and show me the drills"
• "Add TE 192.pdf to the library" (save=true)

**Parameters:** path is relative to the configured PDF directory, or absolute inside it. The file name must contain the session number. With save=true the session is merged into the library file; a session number that already exists is never overwritten.

**Best practices:** Run without save first and check title, minutes and drill phases before adding the session.`
)
