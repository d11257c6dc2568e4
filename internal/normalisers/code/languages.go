package code

// extensionLanguages maps a lower-case file extension to candidate
// languages, most likely first.
var extensionLanguages = map[string][]string{
	"ada":        {"ada"},
	"adb":        {"ada"},
	"ads":        {"ada"},
	"agda":       {"agda"},
	"bash":       {"shell"},
	"bats":       {"shell"},
	"boot":       {"clojure"},
	"c":          {"c"},
	"c++":        {"c++"},
	"cats":       {"c"},
	"cc":         {"c++"},
	"cjs":        {"javascript"},
	"cl2":        {"clojure"},
	"clj":        {"clojure"},
	"cljc":       {"clojure"},
	"cljs":       {"clojure"},
	"cljs.hl":    {"clojure"},
	"cljscm":     {"clojure"},
	"cljx":       {"clojure"},
	"cls":        {"apex"},
	"cmake":      {"cmake"},
	"cmake.in":   {"cmake"},
	"command":    {"shell"},
	"cp":         {"c++", "component pascal"},
	"cpp":        {"c++"},
	"cs":         {"c#", "smalltalk"},
	"cshtml":     {"c#"},
	"css":        {"css"},
	"csx":        {"c#"},
	"cxx":        {"c++"},
	"dockerfile": {"dockerfile"},
	"erl":        {"erlang"},
	"es":         {"erlang"},
	"escript":    {"erlang"},
	"ex":         {"elixir"},
	"exs":        {"elixir"},
	"go":         {"go"},
	"h":          {"c", "c++", "objective-c"},
	"h++":        {"c++"},
	"hh":         {"c++", "hack"},
	"hic":        {"clojure"},
	"hpp":        {"c++"},
	"hrl":        {"erlang"},
	"hs":         {"haskell"},
	"hsc":        {"haskell"},
	"htm":        {"html"},
	"html":       {"html"},
	"hxx":        {"c++"},
	"idc":        {"c"},
	"inl":        {"c++"},
	"ipp":        {"c++"},
	"java":       {"java"},
	"js":         {"javascript"},
	"json":       {"json"},
	"json5":      {"json5"},
	"jsx":        {"javascript"},
	"ksh":        {"shell"},
	"kt":         {"kotlin"},
	"ktm":        {"kotlin"},
	"kts":        {"kotlin"},
	"lua":        {"lua"},
	"m":          {"objective-c"},
	"mjs":        {"javascript"},
	"mm":         {"objective-c"},
	"mts":        {"typescript"},
	"nginxconf":  {"nginx"},
	"pas":        {"pascal"},
	"perl":       {"perl"},
	"ph":         {"perl"},
	"php":        {"php"},
	"pl":         {"perl", "perl6", "prolog"},
	"plsql":      {"plsql"},
	"plx":        {"perl"},
	"py":         {"python"},
	"pyi":        {"python"},
	"pyw":        {"python"},
	"rb":         {"ruby"},
	"rs":         {"rust"},
	"scala":      {"scala"},
	"sh":         {"shell"},
	"sql":        {"sql"},
	"swift":      {"swift"},
	"tcc":        {"c++"},
	"tmux":       {"shell"},
	"tool":       {"shell"},
	"tpp":        {"c++"},
	"ts":         {"typescript"},
	"tsx":        {"typescript"},
	"vue":        {"vue"},
	"w":          {"c"},
	"zsh":        {"shell"},
}

// mimeLanguages maps source MIME types to a language.
var mimeLanguages = map[string]string{
	"application/javascript": "javascript",
	"application/typescript": "typescript",
	"application/x-sh":       "shell",
	"text/javascript":        "javascript",
	"text/x-c":               "c",
	"text/x-c++src":          "c++",
	"text/x-csharp":          "c#",
	"text/x-go":              "go",
	"text/x-java":            "java",
	"text/x-kotlin":          "kotlin",
	"text/x-php":             "php",
	"text/x-python":          "python",
	"text/x-ruby":            "ruby",
	"text/x-rust":            "rust",
	"text/x-shellscript":     "shell",
	"text/x-swift":           "swift",
	"text/x-typescript":      "typescript",
}

// LanguageForExtension returns the most likely language for ext
// (without the dot), or "" when the extension is not source code.
func LanguageForExtension(ext string) string {
	if langs := extensionLanguages[ext]; len(langs) > 0 {
		return langs[0]
	}
	return ""
}
