package usecase

import (
	"fmt"
	"strings"
)

func buildPlannerSystemPrompt(allowedKeys []string) string {
	return fmt.Sprintf(`You convert a natural-language question about contracts into a JSON object with two keys:
semantic_query (string): the core meaning of the question.
filters (object): payload field/value pairs that the question names explicitly.
Allowed filter keys: %s.
Never use any other key. Omit keys the question does not mention.
If the question names a document type (loan agreement, NDA, employee contract) you must add a "category" filter
with one of the values loan_agreement, nda, employee_contract.
Reply with the JSON object only.`, strings.Join(allowedKeys, ", "))
}

func buildPlannerUserPrompt(query string) string {
	return fmt.Sprintf(`Examples:
Query: "What are the termination clauses in the employee contract for John Doe?"
{"semantic_query": "contract termination clauses", "filters": {"employee_name": "John Doe", "category": "employee_contract"}}

Query: "Find all NDAs with GreenLeaf Enterprises"
{"semantic_query": "NDA contracts with GreenLeaf Enterprises", "filters": {"disclosing_party": "GreenLeaf Enterprises", "category": "nda"}}

Query: "What is the usual interest rate for loan agreements?"
{"semantic_query": "usual interest rate for loan agreements", "filters": {"category": "loan_agreement"}}

Wrong, "document_type" is not an allowed key:
{"semantic_query": "usual interest rate", "filters": {"document_type": "loan agreement"}}

Query: %q
`, query)
}

const extractorSystemPrompt = `You extract data fields from legal contracts.
Reply only with a JSON object whose keys exactly match the requested keys.
Use null for any value that cannot be found.`

func buildExtractorUserPrompt(keys []string, text string, maxChars int) string {
	return fmt.Sprintf(`Extract these JSON keys from the contract below: %s

Map concepts even when the wording differs:
- receiving_party or borrower_name: look for "Client", "The Company", "Buyer" or "Borrower".
- disclosing_party or lender_name: look for "Service Provider", "Consultant", "Seller" or "Lender".
- effective_date: look for "commencement date", "start date" or the main date of the agreement.
- due_date: look for "maturity date", "repayment date" or "final payment due".
Dates use MM/DD/YYYY.

Contract text (first %d characters):
---
%s
---`, strings.Join(keys, ", "), maxChars, text)
}

const answerSystemPrompt = `You are a contract analysis assistant. Answer the question using only the contract text in the context.
Do not infer or use outside knowledge. If the context does not contain the answer, say that the document does not contain this information.
Be concise and answer directly.`

func buildAnswerUserPrompt(contextText, question string) string {
	return fmt.Sprintf("Context:\n%s\n\n---\nQuestion:\n%s\n", contextText, question)
}

const summaryQuestion = "Please provide a comprehensive summary of all these documents."
