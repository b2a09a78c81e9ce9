package help

const ColdstartYAML = `# orr Quick Start

targets:
  frame: "The page itself: title, URL, description, dates, selection (default)"
  link: "A link on the page, with the page as context (--link-url)"
  image: "An image on the page, with the page as context (--src-url)"

formats:
  org: "Org-mode heading with properties and body (default)"
  object: "Merged metadata of every frame as JSON"
  object-yaml: "Merged metadata of every frame as YAML"
  org-protocol: "org-protocol:/capture link for emacsclient"

methods:
  stdout: "Print the result (default)"
  file: "Write the result to --out"
  org-protocol: "Print the org-protocol link, requires --format org-protocol"

commands:
  capture_page: |
    orr capture --url "https://example.com/post"

  capture_local_file: |
    orr capture --html saved.html --url "https://example.com/post"

  capture_selection: |
    orr capture --url "https://example.com/post" --selection "quoted text"

  capture_link: |
    orr capture --url "https://example.com/post" --link-url "https://example.com/other" --link-text "other"

  capture_image: |
    orr capture --url "https://example.com/post" --src-url "https://example.com/figure.png"

  capture_subframe: |
    orr capture --url "https://example.com/post" --frame "https://embed.example.net/widget"

  tab_group: |
    orr group --url "https://a.example/,https://b.example/" --title "Reading list"

  to_emacs: |
    emacsclient "$(orr capture --url "https://example.com/post" --method org-protocol --template r)"

  urls: |
    orr urls --html saved.html --url "https://example.com/post"

history_commands:
  list: "orr history --limit 20"
  by_url: "orr history --url https://example.com/post"
  show: "orr history show <id or unique prefix>"
  body_only: "orr history show --body-only <id>"
  debug: "orr history show --debug <id>"

config:
  path: "<user config dir>/org-remark/config.yaml, or --config FILE"
  example: |
    locale: en-US
    export:
      format: org
      method: stdout
    fetch:
      timeout: 30s
      retries: 3
      cache_ttl: 1h
    readability: true
    detect_language: false
    history_size: 100

error_behavior:
  - "Extractor failures are reported inside the note, the capture goes on"
  - "Failed tabs of a group are skipped with a warning"
  - "HTTP 429 and 5xx are retried with exponential backoff, other statuses fail at once"
  - "Exit codes: 0=success, 1=failure"
`
