package crawler

// Sunbiz markup. Everything here is plain CSS so both engines evaluate it the
// same way; headings are matched in Go rather than with text pseudo-classes.
const (
	selSearchInput   = "#SearchTerm"
	selSearchSubmit  = "input[type='submit'][value='Search Now']"
	selSearchResults = "#search-results"
	selResultRows    = "#search-results tbody tr"
	selDetailLink    = "a[title='Go to Detail Screen']"
	selRowStatus     = "td:nth-child(3)"

	selDetail           = ".searchResultDetail"
	selName             = ".detailSection.corporationName p:nth-child(2)"
	selFilingNumber     = "label[for='Detail_DocumentId'] + span"
	selStatus           = "label[for='Detail_Status'] + span"
	selFilingDate       = "label[for='Detail_FileDate'] + span"
	selStateOfFormation = "label[for='Detail_EntityStateCountry'] + span"

	selSections       = "div.detailSection"
	selSectionHeading = "span:first-child"
	selAddressBlock   = "span:nth-of-type(2) > div"
	selAgentName      = "span:nth-of-type(2)"
	selAgentAddress   = "span:nth-of-type(3) > div"
	selFilingRows     = "table tr"
	selFilingLink     = "a"
)

// Section headings, matched by substring.
const (
	headingPrincipal = "Principal Address"
	headingMailing   = "Mailing Address"
	headingAgent     = "Registered Agent Name"
	headingOfficers  = "Officer/Director Detail"
	headingDocuments = "Document Images"
)
