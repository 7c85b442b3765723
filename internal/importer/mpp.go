package importer

// mppGuidance tells the user how to get their plan into a supported format.
// Binary .mpp containers are never decoded.
const mppGuidance = "Binary .mpp files cannot be imported directly. " +
	"Open the plan in Microsoft Project and save it as XML (.xml), then upload that file."

// rejectMPP returns the stub result for a binary Microsoft Project upload:
// a single synthetic error row so the review screen has something to render
// instead of a hard failure. The row is appended to Activities but not
// counted in TotalRows, matching the established review contract.
func rejectMPP() *ImportResult {
	return &ImportResult{
		TotalRows: 0,
		ErrorRows: 1,
		Activities: []ParsedActivity{{
			Status:       StatusError,
			ErrorMessage: mppGuidance,
		}},
		FileType: FormatMPP.Label(),
	}
}
