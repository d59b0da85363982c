package registry

// Category names advertised to the agent as meta-tools.
const (
	CategoryCode          = "code_operations"
	CategoryDocumentation = "documentation_lookup"
	CategoryBrowser       = "browser_testing"
	CategoryWebResearch   = "web_research"
	CategoryUIComponents  = "ui_components"
)

// Upstream identifiers. Each owns exactly one category.
const (
	UpstreamSerena     = "serena"
	UpstreamContext7   = "context7"
	UpstreamPlaywright = "playwright"
	UpstreamTavily     = "tavily"
	UpstreamShadcn     = "shadcn"
)

// Default is the operation table this gateway ships with. renameFile,
// moveFile, and editFile all resolve to the same replace_lines tool on
// serena; that is carried over as-is rather than split into distinct
// upstream tools.
func Default() []Mapping {
	return []Mapping{
		{Category: CategoryCode, Operation: "findSymbol", Upstream: UpstreamSerena, Tool: "find_symbol", Cacheable: true, Description: "Find a symbol by name path"},
		{Category: CategoryCode, Operation: "findReferencingSymbols", Upstream: UpstreamSerena, Tool: "find_referencing_symbols", Cacheable: true, Description: "Find symbols referencing a given symbol"},
		{Category: CategoryCode, Operation: "getSymbolsOverview", Upstream: UpstreamSerena, Tool: "get_symbols_overview", Cacheable: true, Description: "List top-level symbols in a file"},
		{Category: CategoryCode, Operation: "searchForPattern", Upstream: UpstreamSerena, Tool: "search_for_pattern", Cacheable: true, Description: "Search project files for a regex pattern"},
		{Category: CategoryCode, Operation: "readFile", Upstream: UpstreamSerena, Tool: "read_file", Cacheable: true, Description: "Read a file's contents"},
		{Category: CategoryCode, Operation: "listDir", Upstream: UpstreamSerena, Tool: "list_dir", Cacheable: true, Description: "List a directory's contents"},
		{Category: CategoryCode, Operation: "renameFile", Upstream: UpstreamSerena, Tool: "replace_lines", Cacheable: false, Description: "Rename a file"},
		{Category: CategoryCode, Operation: "moveFile", Upstream: UpstreamSerena, Tool: "replace_lines", Cacheable: false, Description: "Move a file"},
		{Category: CategoryCode, Operation: "editFile", Upstream: UpstreamSerena, Tool: "replace_lines", Cacheable: false, Description: "Edit a range of lines in a file"},

		{Category: CategoryDocumentation, Operation: "resolveLibraryId", Upstream: UpstreamContext7, Tool: "resolve-library-id", Cacheable: true, Description: "Resolve a package name to a documentation library id"},
		{Category: CategoryDocumentation, Operation: "getLibraryDocs", Upstream: UpstreamContext7, Tool: "get-library-docs", Cacheable: true, Description: "Fetch documentation for a library id"},

		{Category: CategoryBrowser, Operation: "navigate", Upstream: UpstreamPlaywright, Tool: "browser_navigate", Cacheable: false, Description: "Navigate the browser to a URL"},
		{Category: CategoryBrowser, Operation: "click", Upstream: UpstreamPlaywright, Tool: "browser_click", Cacheable: false, Description: "Click an element"},
		{Category: CategoryBrowser, Operation: "fill", Upstream: UpstreamPlaywright, Tool: "browser_fill", Cacheable: false, Description: "Fill a form field"},
		{Category: CategoryBrowser, Operation: "screenshot", Upstream: UpstreamPlaywright, Tool: "browser_take_screenshot", Cacheable: false, Description: "Capture a screenshot of the page"},
		{Category: CategoryBrowser, Operation: "getConsoleLogs", Upstream: UpstreamPlaywright, Tool: "browser_console_messages", Cacheable: false, Description: "Fetch console log entries"},
		{Category: CategoryBrowser, Operation: "waitForSelector", Upstream: UpstreamPlaywright, Tool: "browser_wait_for", Cacheable: false, Description: "Wait for a selector to appear"},

		{Category: CategoryWebResearch, Operation: "search", Upstream: UpstreamTavily, Tool: "tavily-search", Cacheable: true, Description: "Run a web search"},
		{Category: CategoryWebResearch, Operation: "extract", Upstream: UpstreamTavily, Tool: "tavily-extract", Cacheable: true, Description: "Extract content from a URL"},
		{Category: CategoryWebResearch, Operation: "crawl", Upstream: UpstreamTavily, Tool: "tavily-crawl", Cacheable: true, Description: "Crawl a site starting from a URL"},

		{Category: CategoryUIComponents, Operation: "listComponents", Upstream: UpstreamShadcn, Tool: "list_components", Cacheable: true, Description: "List available UI components"},
		{Category: CategoryUIComponents, Operation: "getComponent", Upstream: UpstreamShadcn, Tool: "get_component", Cacheable: true, Description: "Fetch a component's source"},
		{Category: CategoryUIComponents, Operation: "getComponentDemo", Upstream: UpstreamShadcn, Tool: "get_component_demo", Cacheable: true, Description: "Fetch a component's usage demo"},
		{Category: CategoryUIComponents, Operation: "searchRegistry", Upstream: UpstreamShadcn, Tool: "search_items_in_registries", Cacheable: true, Description: "Search a component registry"},
	}
}
