package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.French

	message.SetString(lang, LabelAnnual, "Congés annuels")
	message.SetString(lang, LabelRecovery, "Récupération")
	message.SetString(lang, LabelTraining, "Formation")
	message.SetString(lang, LabelSick, "Maladie")
	message.SetString(lang, LabelMaternity, "Maternité")
	message.SetString(lang, LabelSpecial, "Congés spéciaux")
	message.SetString(lang, LabelUnpaid, "Sans solde")
	message.SetString(lang, LabelOther, "Autre")

	message.SetString(lang, TransferInsufficient, "Quota insuffisant. Il vous reste %s jours de %s.")
	message.SetString(lang, TransferInsufficientLegacy, "Montant insuffisant. Il reste %s jours disponibles pour le type source.")
	message.SetString(lang, TransferNoRule, "Aucune règle de transfert n'est disponible pour %s vers %s")
	message.SetString(lang, TransferConverts, "Ce transfert convertira %s jour(s) de %s en %s jour(s) de %s.")
	message.SetString(lang, TransferRuleApplied, "Règle appliquée: %s (ratio: %s)")
	message.SetString(lang, TransferLegacySummary, "Transfert de %s jours de %s vers %s avec un ratio de %s.")
	message.SetString(lang, TransferNothingAvailable, "Aucun jour disponible à transférer depuis %s")
	message.SetString(lang, TransferCapped, "Montant cible plafonné à %s jour(s) (limite: %s).")
	message.SetString(lang, TransferRequiresApproval, "Ce transfert nécessite une approbation.")
	message.SetString(lang, TransferStandardRule, "Transfert standard")
	message.SetString(lang, TransferInvalidAmount, "Le nombre de jours doit être d'au moins %s")

	message.SetString(lang, CarryOverNoRule, "Aucune règle de report n'est applicable pour ce type de congé.")
	message.SetString(lang, CarryOverNoRuleFor, "Aucune règle de report n'est disponible pour %s")
	message.SetString(lang, CarryOverNothingRemaining, "Vous n'avez pas de jours restants à reporter.")
	message.SetString(lang, CarryOverCanCarry, "Vous pouvez reporter %s jour(s) sur votre quota de %s vers l'année %s.")
	message.SetString(lang, CarryOverExpiresOn, "Ces jours expireront le %s.")
	message.SetString(lang, CarryOverLegacySummary, "Report de %s jours de %s de %s à %s. Expiration le %s.")
	message.SetString(lang, CarryOverNothingToCarry, "Aucun jour à reporter.")
	message.SetString(lang, CarryOverTargetYear, "Les jours de %s ne peuvent être reportés que sur une année ultérieure, pas sur %s.")

	message.SetString(lang, AvailabilityOK, "%s jour(s) de %s disponibles. Il restera %s jour(s).")
	message.SetString(lang, AvailabilityExceeded, "La demande de %s jour(s) de %s dépasse le quota de %s jour(s).")
	message.SetString(lang, AlertExpiring, "%s jours de %s vont expirer le %s")

	message.SetString(lang, ErrFetchBalance, "Erreur lors de la récupération du solde: %s")
	message.SetString(lang, ErrFetchTransferRules, "Erreur lors de la récupération des règles de transfert: %s")
	message.SetString(lang, ErrFetchCarryOverRules, "Erreur lors de la récupération des règles de report: %s")
	message.SetString(lang, ErrTransfer, "Erreur lors du transfert de quotas: %s")
	message.SetString(lang, ErrCarryOver, "Erreur lors du report de quotas: %s")
	message.SetString(lang, ErrFetchHistory, "Erreur lors de la récupération de l'historique: %s")
	message.SetString(lang, ErrReport, "Erreur lors de la génération du rapport de transferts: %s")
	message.SetString(lang, ErrSpecialPeriods, "Erreur lors de la récupération des périodes spéciales: %s")
	message.SetString(lang, ErrProcessRequest, "Erreur lors du traitement de la demande: %s")
	message.SetString(lang, ErrAdjust, "Erreur lors de l'ajustement du quota: %s")
}
