package pagarme

import "fmt"

const (
	// Name identifica o gateway nas rotas e na coluna de transação do pedido.
	Name = "pagarme"

	DefaultBaseURL = "https://api.pagar.me/core/v5"

	// AllowedPaymentMethod define o único método de pagamento permitido na plataforma
	AllowedPaymentMethod = "pix"

	// BrazilCountryCode é usado quando o telefone chega sem DDI
	BrazilCountryCode = "55"

	StatusPaid = "paid"

	EventOrderPaid  = "order.paid"
	EventChargePaid = "charge.paid"
)

// customerType devolve tipo de cliente e documento a partir dos dígitos:
// 11 dígitos é CPF (individual), 14 é CNPJ (company).
func customerType(document string) (kind, docType string, err error) {
	switch len(document) {
	case 11:
		return "individual", "CPF", nil
	case 14:
		return "company", "CNPJ", nil
	}
	return "", "", fmt.Errorf("documento deve ter 11 (CPF) ou 14 (CNPJ) dígitos (recebido %d)", len(document))
}
