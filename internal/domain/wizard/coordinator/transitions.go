// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coordinator

import (
	"context"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/fsm"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

type (
	topEdge  = fsm.Transition[model.TopState, model.EventType, *Input]
	itemEdge = fsm.Transition[model.ItemPhase, model.EventType, *Input]
	action   = fsm.Action[model.EventType, *Input]
	guard    = fsm.Guard[*Input]
)

// live lists every state CANCEL_ORDER and RETRY may leave from.
var live = []model.TopState{
	model.StateOrderStart,
	model.StateClientSelection,
	model.StateItemManagement,
	model.StateExecutionParams,
	model.StateOrderConfirmation,
	model.StateOrderSummary,
	model.StateLegalAcceptance,
	model.StateReceiptConfiguration,
	model.StateOrderCompletion,
}

func (c *Coordinator) topTransitions() []topEdge {
	cl, it, ex, cf := c.svc.Client, c.svc.Items, c.svc.Execution, c.svc.Confirmation

	ts := []topEdge{
		{From: model.StateOrderStart, Event: model.EventStartOrder, To: model.StateClientSelection, Action: run(cl.Initialize)},

		// Stage 1.
		{From: model.StateClientSelection, Event: model.EventSelectClient, To: model.StateClientSelection, Action: withPayload(cl.SelectClient)},
		{From: model.StateClientSelection, Event: model.EventCreateClient, To: model.StateClientSelection, Action: withPayload(cl.CreateClient)},
		{From: model.StateClientSelection, Event: model.EventSetOrderInfo, To: model.StateClientSelection, Action: withPayload(cl.SetOrderInfo)},
		{
			From: model.StateClientSelection, Event: model.EventCompleteClientSelection, To: model.StateItemManagement,
			Guard:  c.check(cl.Check),
			Action: run(cl.Complete, it.Initialize),
		},

		// Stage 2. Item events are routed to the item machine first.
		{
			From: model.StateItemManagement, Event: model.EventCompleteItems, To: model.StateExecutionParams,
			Guard:  c.all(c.itemIdle, c.check(it.Check)),
			Action: run(it.Complete, ex.Initialize),
		},
		{
			From: model.StateItemManagement, Event: model.EventGoBack, To: model.StateClientSelection,
			Guard:  c.itemIdle,
			Action: run(cl.Reopen),
		},

		// Stage 3.
		{From: model.StateExecutionParams, Event: model.EventSetCompletionDate, To: model.StateExecutionParams, Action: withPayload(ex.SetCompletionDate)},
		{From: model.StateExecutionParams, Event: model.EventSetUrgency, To: model.StateExecutionParams, Action: withPayload(ex.SetUrgency)},
		{From: model.StateExecutionParams, Event: model.EventSetDiscount, To: model.StateExecutionParams, Action: withPayload(ex.SetDiscount)},
		{From: model.StateExecutionParams, Event: model.EventSetPayment, To: model.StateExecutionParams, Action: withPayload(ex.SetPayment)},
		{From: model.StateExecutionParams, Event: model.EventSetNotes, To: model.StateExecutionParams, Action: withPayload(ex.SetNotes)},
		{
			From: model.StateExecutionParams, Event: model.EventCompleteExecutionParams, To: model.StateOrderConfirmation,
			Guard:  c.check(ex.Check),
			Action: then(run(ex.Complete, cf.Initialize), model.EventEnterSummary),
		},
		{From: model.StateExecutionParams, Event: model.EventGoBack, To: model.StateItemManagement, Action: run(ex.Reopen)},

		// Stage 4.
		{From: model.StateOrderConfirmation, Event: model.EventEnterSummary, To: model.StateOrderSummary, Action: run(cf.ComputeSummary)},
		{
			From: model.StateOrderSummary, Event: model.EventApproveSummary, To: model.StateLegalAcceptance,
			Guard:  c.check(cf.CheckSummary),
			Action: run(cf.ApproveSummary),
		},
		{From: model.StateOrderSummary, Event: model.EventGoBack, To: model.StateExecutionParams, Action: run(ex.Reopen)},
		{From: model.StateLegalAcceptance, Event: model.EventAcceptTerms, To: model.StateLegalAcceptance, Action: withPayload(cf.AcceptTerms)},
		{From: model.StateLegalAcceptance, Event: model.EventSubmitLegal, To: model.StateReceiptConfiguration, Guard: c.check(cf.CheckLegal)},
		{From: model.StateLegalAcceptance, Event: model.EventGoBack, To: model.StateOrderSummary, Action: run(cf.ComputeSummary)},
		{From: model.StateReceiptConfiguration, Event: model.EventConfigureReceipt, To: model.StateReceiptConfiguration, Action: withPayload(cf.ConfigureReceipt)},
		{
			From: model.StateReceiptConfiguration, Event: model.EventConfirmReceipt, To: model.StateOrderCompletion,
			Guard:  c.check(cf.CheckReceipt),
			Action: then(nil, model.EventCompleteOrder),
		},
		{From: model.StateReceiptConfiguration, Event: model.EventGoBack, To: model.StateLegalAcceptance},
		{From: model.StateOrderCompletion, Event: model.EventCompleteOrder, To: model.StateCompleted, Action: c.completeOrder},
	}

	ts = append(ts, topEdge{From: model.StateSystemError, Event: model.EventCancelOrder, To: model.StateAbandoned})
	for _, s := range live {
		ts = append(ts, topEdge{From: s, Event: model.EventCancelOrder, To: model.StateAbandoned})
		ts = append(ts, topEdge{
			From: model.StateSystemError, Event: model.EventRetry, To: s,
			Guard:  errorFrom(s),
			Action: c.retry,
		})
	}
	return ts
}

func (c *Coordinator) itemTransitions() []itemEdge {
	it := c.svc.Items
	bi, ch, sd, pd, ph := c.svc.BasicInfo, c.svc.Characteristics, c.svc.StainsDefects, c.svc.PriceDiscount, c.svc.Photos

	initialize := map[model.ItemPhase]func(context.Context, string) (*model.Session, error){
		model.PhaseBasicInfo:          bi.Initialize,
		model.PhaseCharacteristics:    ch.Initialize,
		model.PhaseStainsDefects:      sd.Initialize,
		model.PhasePriceDiscount:      pd.Initialize,
		model.PhasePhotoDocumentation: ph.Initialize,
	}

	ts := []itemEdge{
		{From: model.PhaseIdle, Event: model.EventStartItem, To: model.PhaseBasicInfo, Action: run(it.StartItem, bi.Initialize)},
		{From: model.PhaseIdle, Event: model.EventEditItem, To: model.PhaseBasicInfo, Action: withPayload(it.EditItem, bi.Initialize)},
		{From: model.PhaseIdle, Event: model.EventDeleteItem, To: model.PhaseIdle, Action: withPayload(it.DeleteItem)},

		{From: model.PhaseBasicInfo, Event: model.EventSelectServiceCategory, To: model.PhaseBasicInfo, Action: withPayload(bi.SelectServiceCategory)},
		{From: model.PhaseBasicInfo, Event: model.EventSelectCatalogItem, To: model.PhaseBasicInfo, Action: withPayload(bi.SelectCatalogItem)},
		{From: model.PhaseBasicInfo, Event: model.EventEnterQuantity, To: model.PhaseBasicInfo, Action: withPayload(bi.EnterQuantity)},

		{From: model.PhaseCharacteristics, Event: model.EventSelectMaterial, To: model.PhaseCharacteristics, Action: withPayload(ch.SelectMaterial)},
		{From: model.PhaseCharacteristics, Event: model.EventSetCharacteristics, To: model.PhaseCharacteristics, Action: withPayload(ch.SetCharacteristics)},

		{From: model.PhaseStainsDefects, Event: model.EventSelectStains, To: model.PhaseStainsDefects, Action: withPayload(sd.SelectStains)},
		{From: model.PhaseStainsDefects, Event: model.EventSetDefects, To: model.PhaseStainsDefects, Action: withPayload(sd.SetDefects)},

		{From: model.PhasePriceDiscount, Event: model.EventToggleModifier, To: model.PhasePriceDiscount, Action: withPayload(pd.ToggleModifier)},

		{From: model.PhasePhotoDocumentation, Event: model.EventAddPhoto, To: model.PhasePhotoDocumentation, Action: withPayload(ph.AddPhoto)},
		{From: model.PhasePhotoDocumentation, Event: model.EventRemovePhoto, To: model.PhasePhotoDocumentation, Action: withPayload(ph.RemovePhoto)},
		{From: model.PhasePhotoDocumentation, Event: model.EventSkipPhotos, To: model.PhasePhotoDocumentation, Action: withPayload(ph.SkipPhotos)},
	}

	for i, p := range model.Substeps {
		ts = append(ts,
			itemEdge{From: p, Event: model.EventSubmitSubstep, To: p, Action: c.submit(p)},
			itemEdge{From: p, Event: model.EventCancelItem, To: model.PhaseIdle, Action: run(it.CancelItem)},
		)
		if i > 0 {
			ts = append(ts, itemEdge{From: p, Event: model.EventGoBack, To: model.Substeps[i-1]})
		}
		if next := p.Next(); next != model.PhaseIdle {
			ts = append(ts, itemEdge{
				From: p, Event: model.EventSubstepCompleted, To: next,
				Guard:  c.substepDone(p),
				Action: run(initialize[next]),
			})
			continue
		}
		ts = append(ts, itemEdge{
			From: p, Event: model.EventSubstepCompleted, To: model.PhaseIdle,
			Guard:  c.itemReady,
			Action: run(it.FinalizeItem),
		})
	}
	return ts
}
