package wiki

import "github.com/rotisserie/eris"

var (
	// ErrStoreUnavailable indicates the container's wiki could not be opened or created.
	ErrStoreUnavailable = eris.New("wiki store unavailable")
	// ErrPageNotFound indicates no page matches the identifier.
	ErrPageNotFound = eris.New("wiki page not found")
	// ErrVersionNotFound indicates the requested version does not belong to the page.
	ErrVersionNotFound = eris.New("wiki page version not found")
	// ErrInvalidPage indicates the submitted page fields failed validation.
	ErrInvalidPage = eris.New("invalid wiki page")
	// ErrInvalidContainer indicates the container kind or path is not usable.
	ErrInvalidContainer = eris.New("invalid wiki container")
)

const (
	// NoticeStoreUnavailable is shown after redirecting away from an unavailable wiki.
	NoticeStoreUnavailable = "Could not create Wiki Repository at this time. Please try again later."
	// NoticeInvalidEncoding is shown for pages whose content is not UTF-8.
	NoticeInvalidEncoding = "The content of this page is not encoded in UTF-8. Edits can only be made via the Git repository."
)
