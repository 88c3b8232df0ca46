package domain

// ChatMessage is one row of a client's chat transcript.
type ChatMessage struct {
	Msg         string `json:"msg"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Type        string `json:"type"`
}

// ClientProfile holds the signals mined from a client's chat history. The four
// derived facets are computed independently and may be empty.
type ClientProfile struct {
	Country     string `json:"country"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector"`

	ChatSummary    string `json:"chat_summary"`
	ChatInterest   string `json:"chat_interest"`
	ChatProducts   string `json:"chat_products"`
	ChatCurrencies string `json:"chat_currencies"`

	// ChatHistory is the subset of messages most similar to the client's interests.
	ChatHistory []ChatMessage `json:"chat_history"`
	// OriginalChatHistory is the full transcript.
	OriginalChatHistory []ChatMessage `json:"original_chat_history"`
}

// ClientInput is a client registry entry.
type ClientInput struct {
	SalesName           string   `yaml:"sales_name" json:"sales_name"`
	SalesEmail          string   `yaml:"sales_email" json:"sales_email"`
	Company             string   `yaml:"company" json:"company"`
	Names               []string `yaml:"names" json:"names"`
	Emails              []string `yaml:"emails" json:"emails"`
	ClientIDs           []string `yaml:"client_ids" json:"client_ids"`
	BBGChatCompanyNames []string `yaml:"bbg_chat_company_names" json:"bbg_chat_company_names"`
	BBGChatSalesNames   []string `yaml:"bbg_chat_sales_names" json:"bbg_chat_sales_names"`
	RFQCompanyNames     []string `yaml:"rfq_company_names" json:"rfq_company_names"`
	CRMCompanyNames     []string `yaml:"crm_company_names" json:"crm_company_names"`
	IsPrivate           bool     `yaml:"is_private" json:"is_private"`
	ChatSources         []string `yaml:"chat_sources" json:"chat_sources"`
	AddedToPipeline     bool     `yaml:"added_to_pipeline" json:"added_to_pipeline"`
	ScheduleRegion      string   `yaml:"schedule_region" json:"schedule_region"`
}

// ID returns the identifier used for logging and history: the first client id,
// falling back to the company name.
func (c ClientInput) ID() string {
	for _, id := range c.ClientIDs {
		if id != "" {
			return id
		}
	}
	return c.Company
}
