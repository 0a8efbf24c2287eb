package catalog

import "github.com/yanizio/adept-redirects/internal/redirect"

// Builtin is the shipped catalog: request shapes produced by vulnerability
// scanners and legacy CMS probes.  Imported entries start inactive; once
// activated they send such probes to the site root instead of a 404.
//
// Bump Version whenever Patterns changes.
var Builtin = Table{
	Version: "2025.1",
	Patterns: []Pattern{
		// VCS, editor, and credential directories
		probe(`(?i)^/\.(?:git|svn|hg)(?:/.*)?$`),
		probe(`(?i)^/\.ssh(?:/.*)?$`),
		probe(`(?i)^/\.aws(?:/.*)?$`),
		probe(`(?i)^/\.github(?:/.*)?$`),
		probe(`(?i)^/\.?(?:DS_Store)(?:\.[A-Za-z0-9._-]+)?(?:\?.*)?$`),
		probe(`(?i)^/\.bash_history(?:\?.*)?$`),
		probe(`(?i)^/.*(?:\.vscode|\.idea)(?:/.*)?$`),
		probe(`(?i)^/node_modules/.*`),

		// container and CI files
		probe(`(?i)^/(?:Dockerfile|docker-compose(?:\.[A-Za-z0-9._-]+)?\.ya?ml|\.dockerignore)(?:\?.*)?$`),
		probe(`(?i)^/\.docker(?:/.*)?$`),
		probe(`(?i)^/\.github/dependabot\.ya?ml(?:\?.*)?$`),

		// configuration, keys, and logs
		probe(`(?i)^/+config/(?:settings|secrets)\.json(?:\?.*)?$`),
		probe(`(?i)^/+config/.*\.conf(?:\?.*)?$`),
		probe(`(?i)^/+.*php\.ini(?:\?.*)?$`),
		probe(`(?i)^/+php_errors\.log(?:\?.*)?$`),
		probe(`(?i)^/id_rsa(?:\.pub)?(?:\?.*)?$`),
		probe(`(?i)^/.*\.env(?:\.[A-Za-z0-9._-]+)?(?:\?.*)?$`),
		probe(`(?i)^/.*\.log(?:\.[0-9]+)?(?:\.(?:zip|gz|tgz|bz2|xz|zst))?(?:\?.*)?$`),

		// database dumps and archives
		probe(`(?i)^/.*\.sql(?:\.(?:zip|gz|tgz|bz2|xz|zst|7z|rar))*(?:\?.*)?$`),
		probe(`(?i)^/.*\.(?:db|sqlite3?|sqlitedb)(?:\?.*)?$`),
		probe(`(?i)^/\.?(?:backup|db|dump|database|site|www)\.(?:sql|sqlite3?|zip|tar|tgz|gz|bz2|xz|zst|7z|bak|rar)(?:\.[A-Za-z0-9._-]+)?(?:\?.*)?$`),
		probe(`(?i)^/.*\.(?:zip|tar|tgz|gz|bz2|xz|zst|7z|rar)(?:\?.*)?$`),
		probe(`(?i)^/.*\bsql\b.*\.jar(?:\?.*)?$`),
		probe(`(?i)^/.*\.jar(?:\?.*)?$`),

		// foreign server-side runtimes
		probe(`(?i)^/+.*\.ph(?:p\d*|p)([^/]*)(?:/.*)?(?:\?.*)?$`),
		probe(`(?i)^/.*\.(?:jspx?|aspx?)(?:\?.*)?$`),
		probe(`(?i)^/.*\.py(?:\?.*)?$`),
		probe(`(?i).*wp-(?:includes|admin|content).*`),
		probe(`(?i).*/xmlrpc\.php(?:\?.*)?$`),
		probe(`(?i).*/phpmyadmin.*`),

		// traversal and injection payloads in the path
		probe(`(?i).*(?:\.\./|\.\.\\|%2e%2e%2f|%2e%2e\\|%5c\.\.%5c|%252e%252e%252f|%255c%255c).*`),
		probe(`(?i).*etc/passwd.*`),
		probe(`(?i).*union(?:\s+all)?\s+select.*`),
		probe(`(?i).*(?:'|")\s*or\s*1\s*=\s*1\b.*`),
		probe(`(?i).*(?:sleep|benchmark|pg_sleep)\s*\(.*`),
		probe(`(?i).*load_file\s*\(.*`),
		probe(`(?i).*@@(?:version|hostname)\b.*`),
		probe(`(?i).*information_schema\b.*`),
		probe(`(?i).*xp_cmdshell\b.*`),
		probe(`(?i).*(?:;|%3b)\s*(?:drop|truncate|shutdown|delete)\s+.*`),

		// server internals and cloud metadata
		probe(`(?i)^/cgi-bin/.*`),
		probe(`(?i)^/server-status(?:\?.*)?$`),
		probe(`(?i)^/+aws/(?:cognito|ecs)(?:/.*)?$`),
		probe(`(?i)^/+aws/ecs/task-credentials(?:/.*)?$`),
		probe(`(?i)^/+aws/.+\.(?:json|ya?ml)(?:\?.*)?$`),
	},
}

func probe(src string) Pattern {
	return Pattern{Source: src, Rule: RuleSiteRoot, Status: redirect.StatusTemporary}
}
