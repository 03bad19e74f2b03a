// Package rollout berechnet Attention-Rollout Saliency-Maps fuer Vision Transformer.
//
// Eingabe ist eine Sequence von AttentionTensoren (ein Tensor pro Transformer-Block,
// Form Heads x Tokens x Tokens, Token 0 = Klassifikations-Token). Die Berechnung
// laeuft in fuenf festen Schritten:
//
//  1. FuseHeads:        Mittelwert ueber alle Heads (ungewichtet)
//  2. Augment:          Identitaet addieren (Residual-Verbindung), Zeilen renormalisieren
//  3. JointAttention:   joint[n] = aug[n] * joint[n-1], aeltester Layer zuerst
//  4. ExtractSaliency:  Zeile des Klassifikations-Tokens ohne Spalte 0
//  5. Reshape:          quadratisches Gitter ueber den Patch-Tokens
//
// Alle Funktionen sind rein: keine Seiteneffekte, kein Logging, keine Goroutinen.
// Zwei Aufrufe mit identischer Eingabe liefern bitgleiche Ergebnisse.
package rollout
