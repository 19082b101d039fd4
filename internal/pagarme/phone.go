package pagarme

import (
	"fmt"
	"strconv"
	"strings"

	"cardapio/api/internal/gateway"
)

// PhoneData é o telefone estruturado enviado em customer.phones.mobile_phone
type PhoneData struct {
	CountryCode string `json:"country_code"`
	AreaCode    string `json:"area_code"`
	Number      string `json:"number"`
}

// ParsePhone quebra um telefone brasileiro livre ("(11) 98888-7777",
// "+55 11 98888-7777") em DDI, DDD e número.
func ParsePhone(raw string) (PhoneData, error) {
	digits := gateway.Digits(raw)

	if len(digits) >= 12 && strings.HasPrefix(digits, BrazilCountryCode) {
		digits = digits[len(BrazilCountryCode):]
	}
	if n := len(digits); n < 10 || n > 11 {
		return PhoneData{}, fmt.Errorf("telefone deve ter DDD e número (recebido %d dígitos)", n)
	}

	p := PhoneData{CountryCode: BrazilCountryCode, AreaCode: digits[:2], Number: digits[2:]}
	if err := ValidatePhone(p); err != nil {
		return PhoneData{}, err
	}
	return p, nil
}

// ValidatePhone valida telefone completo com suporte a Brasil e internacional
func ValidatePhone(p PhoneData) error {
	if p.CountryCode == "" {
		return fmt.Errorf("country code é obrigatório")
	}

	if p.CountryCode == BrazilCountryCode {
		if len(p.AreaCode) != 2 {
			return fmt.Errorf("DDD deve ter 2 dígitos")
		}
		ddd, err := strconv.Atoi(p.AreaCode)
		if err != nil || ddd < 11 || ddd > 99 {
			return fmt.Errorf("DDD inválido: deve estar entre 11 e 99")
		}
		if n := len(p.Number); n != 8 && n != 9 {
			return fmt.Errorf("número deve ter 8 ou 9 dígitos (recebido %d)", n)
		}
		return nil
	}

	if len(p.CountryCode) > 3 {
		return fmt.Errorf("country code inválido")
	}
	if p.AreaCode == "" {
		return fmt.Errorf("area code é obrigatório")
	}
	if len(p.Number) < 6 {
		return fmt.Errorf("número de telefone muito curto")
	}
	return nil
}
