package protocol

import "strconv"

// UnknownLabel is used for category bytes past the end of the table.
const UnknownLabel = "Unknown parameter"

var categories = [...]string{
	"Time elapsed",
	"RPS",
	"Current used SIDs",
	"Current battles",
	"Current users",
	"Total battles",
	"Total users",
	"Senders count",
	"Receivers count",
	"Current AI count",
	"Total AI spawned",
	"Battle refs up",
	"Battle refs down",
	"Round refs up",
	"Round refs down",
	"Field refs up",
	"Field refs down",
	"Current env size",
}

// NumCategories is the size of the category table.
const NumCategories = len(categories)

// CategoryLabel returns the label for c, or UnknownLabel when c is out of range.
func CategoryLabel(c uint8) string {
	if int(c) < len(categories) {
		return categories[c]
	}
	return UnknownLabel
}

// KnownCategory reports whether c is in the table.
func KnownCategory(c uint8) bool { return int(c) < len(categories) }

// Server status codes seen in replies. Statistics requests fail with
// StatusIncorrectToken when the signature is not the server's token.
const (
	StatusOK              uint8 = 0
	StatusNotHandled      uint8 = 240
	StatusIncorrectLength uint8 = 241
	StatusNotEnoughArgs   uint8 = 242
	StatusIncorrectArg    uint8 = 243
	StatusUserNotFound    uint8 = 245
	StatusIncorrectToken  uint8 = 246
	StatusFnCodeNotFound  uint8 = 253
	StatusServerStopping  uint8 = 254
)

var statusText = map[uint8]string{
	StatusOK:              "ok",
	StatusNotHandled:      "not handled",
	StatusIncorrectLength: "incorrect length",
	StatusNotEnoughArgs:   "not enough arguments",
	StatusIncorrectArg:    "incorrect argument",
	StatusUserNotFound:    "user not found",
	StatusIncorrectToken:  "incorrect token",
	StatusFnCodeNotFound:  "function code not found",
	StatusServerStopping:  "server is stopping",
}

// StatusText returns a short description of a status code for logs.
func StatusText(code uint8) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "code " + strconv.Itoa(int(code))
}
