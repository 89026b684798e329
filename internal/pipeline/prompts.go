package pipeline

import (
	"strings"

	"github.com/dvloznov/statement-insights/internal/domain"
)

const bankPromptHeader = "This is a Japanese bank account statement. Read it carefully and extract:\n\n" +
	"1. The description of every transaction\n" +
	"2. The amount of every transaction (whole yen, integer)\n" +
	"3. The transaction date\n" +
	"4. The transaction type: income or expense\n"

const bankPromptSchema = "Return JSON in exactly this shape:\n" +
	"{\n" +
	"  \"transactions\": [\n" +
	"    {\n" +
	"      \"merchant\": \"transaction description\",\n" +
	"      \"amount\": number (positive = income, negative = expense),\n" +
	"      \"date\": \"YYYY-MM-DD\",\n" +
	"      \"type\": \"income\" or \"expense\",\n" +
	"      \"category\": \"category label\"\n" +
	"    }\n" +
	"  ],\n" +
	"  \"total_income\": total income,\n" +
	"  \"total_expense\": total expense (negative number),\n" +
	"  \"net_balance\": net balance,\n" +
	"  \"statement_month\": \"YYYY-MM\"\n" +
	"}\n"

const cardPromptHeader = "This is a Japanese credit card bill. Read it carefully and extract:\n\n" +
	"1. The merchant name of every purchase\n" +
	"2. The amount of every purchase (whole yen, integer)\n" +
	"3. The purchase date\n"

const cardPromptSchema = "Return JSON in exactly this shape:\n" +
	"{\n" +
	"  \"transactions\": [\n" +
	"    {\n" +
	"      \"merchant\": \"merchant name\",\n" +
	"      \"amount\": number (integer),\n" +
	"      \"date\": \"YYYY-MM-DD\",\n" +
	"      \"category\": \"category label\"\n" +
	"    }\n" +
	"  ],\n" +
	"  \"total_amount\": total amount,\n" +
	"  \"bill_month\": \"YYYY-MM\"\n" +
	"}\n"

const outputRules = "Rules:\n" +
	"- Return ONLY valid raw JSON.\n" +
	"- Do NOT wrap the response in code fences.\n" +
	"- Do NOT use ```json or any Markdown.\n" +
	"- Output must begin with \"{\" and end with \"}\".\n" +
	"- Use null for a date you cannot read.\n"

var (
	bankPrompt = buildTemplate(bankPromptHeader, domain.BankCategories, bankPromptSchema)
	cardPrompt = buildTemplate(cardPromptHeader, domain.CardCategories, cardPromptSchema)
)

func buildTemplate(header string, categories []string, schema string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("5. The category, EXACTLY one of: ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\n\n")
	b.WriteString(schema)
	b.WriteString("\n")
	b.WriteString(outputRules)
	return b.String()
}

// BuildPrompt returns the fixed extraction prompt for a statement type.
func BuildPrompt(t domain.StatementType) (string, error) {
	switch t {
	case domain.StatementTypeBank:
		return bankPrompt, nil
	case domain.StatementTypeCreditCard:
		return cardPrompt, nil
	default:
		return "", domain.ErrUnsupportedStatementType
	}
}
