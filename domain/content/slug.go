package content

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxNameLength = 50

var (
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9]+`)
	trailingNumber = regexp.MustCompile(`^(.*)-(\d+)$`)

	// letters that do not decompose into a base letter plus marks
	ligatures = strings.NewReplacer(
		"ß", "ss", "ẞ", "SS",
		"æ", "ae", "Æ", "AE",
		"œ", "oe", "Œ", "OE",
		"ø", "o", "Ø", "O",
		"đ", "d", "Đ", "D",
		"ð", "d", "Ð", "D",
		"ł", "l", "Ł", "L",
		"þ", "th", "Þ", "TH",
		"ı", "i",
	)
)

// URLNormalize turns a title into a lowercase, dash separated name made of
// ASCII letters and digits. Latin letters lose their accents and common
// ligatures are spelled out. Other scripts are dropped, so a title written
// only in them yields "item".
func URLNormalize(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, ligatures.Replace(title))
	if err != nil {
		ascii = title
	}
	name := nonSlugChars.ReplaceAllString(strings.ToLower(ascii), "-")
	name = strings.Trim(name, "-")
	if len(name) > maxNameLength {
		name = strings.TrimRight(name[:maxNameLength], "-")
	}
	if name == "" {
		name = "item"
	}
	return name
}

// TitleToName derives a name from title that is not in taken. Collisions
// get "-1" appended, then the trailing number is bumped until free.
func TitleToName(title string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, k := range taken {
		used[k] = true
	}

	name := URLNormalize(title)
	if !used[name] {
		return name
	}
	name += "-1"
	for used[name] {
		m := trailingNumber.FindStringSubmatch(name)
		n, _ := strconv.Atoi(m[2])
		name = m[1] + "-" + strconv.Itoa(n+1)
	}
	return name
}
