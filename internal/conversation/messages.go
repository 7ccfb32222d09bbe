package conversation

import (
	"fmt"

	"billbot/internal/domain"
)

// User-visible text always comes from this bounded template set — raw
// upstream error text never reaches the customer.
const (
	msgAskIdentifier = "Olá! Não localizei seu cadastro por este telefone. " +
		"Para continuar, envie o CNPJ ou CPF da sua empresa (somente números)."
	msgAskNewIdentifier    = "Certo! Envie o novo CNPJ ou CPF (somente números)."
	msgIdentifierNotFound  = "Não encontrei nenhum cadastro com esse documento. Confira os números e tente novamente."
	msgIdentifierInvalid   = "Não consegui entender. Envie um CNPJ (14 dígitos) ou CPF (11 dígitos), somente números."
	msgIdentifierNoAccess  = "Encontrei o cadastro, mas este telefone não está autorizado a receber documentos de cobrança dessa empresa."
	msgBlocked             = "Identificamos uma pendência cadastral que impede o envio de documentos. Por favor, procure nosso setor financeiro."
	msgNoPermission        = "Este telefone não está autorizado a solicitar documentos de cobrança. Digite 3 para falar com um atendente."
	msgHandoff             = "Certo! Vou te transferir para um atendente. Aguarde um momento."
	msgFarewell            = "Atendimento encerrado. Quando precisar, é só chamar!"
	msgUnavailable         = "Estamos com uma instabilidade no momento. Tente novamente em alguns minutos."
	msgInternal            = "Ocorreu um erro inesperado. Tente novamente em instantes."
	msgMenuUnrecognized    = "Não entendi. Escolha uma das opções abaixo."
	msgNoOpenDocuments     = "Você não possui documentos em aberto no momento."
	msgDocumentFetchFailed = "Não consegui gerar um dos documentos agora. Tente novamente mais tarde."
	msgMenuTitle           = "Como posso ajudar?"
)

func msgGreeting(contact *domain.Contact) string {
	if contact != nil && contact.Name != "" {
		return fmt.Sprintf("Olá, %s! Encontrei seu cadastro.", contact.Name)
	}
	return "Olá! Encontrei seu cadastro."
}

func msgAccountHeader(acc domain.Account) string {
	return fmt.Sprintf("Documentos em aberto de %s:", acc.Name)
}

func msgDocumentCaption(doc domain.Document) string {
	return fmt.Sprintf("%s %s - R$ %.2f - vencimento %s",
		docKindLabel(doc.Kind), doc.Number, doc.Amount, doc.DueDate.Format("02/01/2006"))
}

func docKindLabel(kind string) string {
	switch kind {
	case "nfe":
		return "Nota fiscal"
	default:
		return "Boleto"
	}
}

func menuOptions() []domain.MenuOption {
	return []domain.MenuOption{
		{Code: "1", Label: "Boletos e notas em aberto"},
		{Code: "2", Label: "Consultar outro CNPJ/CPF"},
		{Code: "3", Label: "Falar com um atendente"},
		{Code: "0", Label: "Encerrar atendimento"},
	}
}
