package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAPIKeyGuide prints how to obtain the Google Custom Search credentials
func ShowAPIKeyGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "GOOGLE IMAGE SEARCH SETUP")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The google engine uses the Custom Search JSON API. It needs two values:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. A search engine id (cx)")
	fmt.Fprintln(w, "   - Open https://programmablesearchengine.google.com and create an engine")
	fmt.Fprintln(w, "   - Turn on \"Image search\" and \"Search the entire web\"")
	fmt.Fprintln(w, "   - Copy the engine id into search.google_cx or TMSCRAPER_GOOGLE_CX")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "2. An API key")
	fmt.Fprintln(w, "   - Open https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(w, "   - Enable the Custom Search API and create an API key")
	fmt.Fprintln(w, "   - Store it with: tmscraper auth set-key")
	fmt.Fprintf(w, "     or export %s\n", EnvVar(GoogleAPIKey))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The free tier allows 100 queries per day; each query returns at most 10 images.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
